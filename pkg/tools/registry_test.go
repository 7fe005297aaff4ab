package tools

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) Tool {
	return Tool{
		Name: name,
		Handler: func(args map[string]any) (string, error) {
			v, _ := args["value"].(string)
			return "echo:" + v, nil
		},
	}
}

func TestExecuteReturnsHandlerResult(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("echo"))

	result := r.Execute("echo", map[string]any{"value": "hi"})
	assert.Equal(t, "echo:hi", result)
}

func TestExecuteMissingToolNeverErrors(t *testing.T) {
	r := NewRegistry()

	result := r.Execute("nope", nil)
	assert.Equal(t, `Error: tool "nope" not found`, result)

	// A missing tool leaves no usage record behind.
	_, ok := r.Usage()
	assert.False(t, ok)
}

func TestExecuteContainsHandlerError(t *testing.T) {
	r := NewRegistry()
	r.SetClearDelay(time.Hour)
	r.Register(Tool{
		Name: "broken",
		Handler: func(args map[string]any) (string, error) {
			return "", errors.New("disk on fire")
		},
	})

	result := r.Execute("broken", nil)
	assert.Contains(t, result, "Error executing broken")
	assert.Contains(t, result, "disk on fire")

	usage, ok := r.Usage()
	require.True(t, ok)
	assert.Equal(t, UsageError, usage.Status)
}

func TestExecuteContainsHandlerPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{
		Name: "explosive",
		Handler: func(args map[string]any) (string, error) {
			panic("boom")
		},
	})

	result := r.Execute("explosive", nil)
	assert.Contains(t, result, "Error executing explosive")
	assert.Contains(t, result, "boom")
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "dup", Handler: func(map[string]any) (string, error) { return "first", nil }})
	r.Register(Tool{Name: "dup", Handler: func(map[string]any) (string, error) { return "second", nil }})

	assert.Equal(t, "second", r.Execute("dup", nil))
	assert.Len(t, r.Declarations(), 1)
}

func TestDeclarationsPreserveRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zulu", "alpha", "mike"} {
		r.Register(echoTool(name))
	}

	decls := r.Declarations()
	require.Len(t, decls, 3)
	assert.Equal(t, "zulu", decls[0].Name)
	assert.Equal(t, "alpha", decls[1].Name)
	assert.Equal(t, "mike", decls[2].Name)
}

func TestUsageLifecycleNotifiesObserver(t *testing.T) {
	r := NewRegistry()
	r.SetClearDelay(10 * time.Millisecond)
	r.Register(echoTool("echo"))

	var mu sync.Mutex
	var statuses []UsageStatus
	var cleared bool
	r.SetObserver(func(u Usage) {
		mu.Lock()
		defer mu.Unlock()
		if u.Tool == "" {
			cleared = true
			return
		}
		statuses = append(statuses, u.Status)
	})

	r.Execute("echo", map[string]any{"value": "x"})

	usage, ok := r.Usage()
	require.True(t, ok)
	assert.Equal(t, "echo", usage.Tool)
	assert.Equal(t, UsageCompleted, usage.Status)
	assert.Equal(t, "echo:x", usage.Result)

	// The record clears after the delay and the observer sees it.
	require.Eventually(t, func() bool {
		_, ok := r.Usage()
		return !ok
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []UsageStatus{UsageExecuting, UsageCompleted}, statuses)
	assert.True(t, cleared)
}

func TestNewerUsageSurvivesOlderClear(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("first"))
	r.Register(echoTool("second"))

	r.SetClearDelay(10 * time.Millisecond)
	r.Execute("first", nil)
	r.SetClearDelay(time.Hour)
	r.Execute("second", nil)

	// The first record's clear deadline passes, but it may only clear
	// its own invocation, not the one that replaced it.
	time.Sleep(30 * time.Millisecond)
	usage, ok := r.Usage()
	require.True(t, ok)
	assert.Equal(t, "second", usage.Tool)
}
