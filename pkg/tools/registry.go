// Package tools implements the assistant's tool registry: a mapping from
// tool name to handler, with declarations advertised to the backend and a
// single tracked usage record for dispatch in flight.
//
// The registry is intentionally generic. It does not know what a "note"
// or a "terminal command" is; domain tools are external collaborators
// satisfying the Tool contract. Its only job is dispatch, status tracking,
// and uniform error containment so one failing tool cannot crash the
// session.
package tools

import (
	"fmt"
	"sync"
	"time"

	"github.com/AConteh33/go-marcus/internal/log"
)

// Tool is a capability the AI can invoke during conversation.
type Tool struct {
	// Name is the unique identifier (e.g., "create_note").
	Name string `json:"name"`

	// Description helps the AI decide when to use the tool.
	Description string `json:"description"`

	// Parameters is the JSON schema for the tool's arguments.
	Parameters map[string]any `json:"parameters"`

	// Handler receives the parsed arguments and returns a result string.
	// On failure it should return a human-readable error string as its
	// normal result; returned errors and panics are contained by the
	// registry either way.
	Handler func(args map[string]any) (string, error) `json:"-"`
}

// Declaration is the static schema advertised upstream.
type Declaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// UsageStatus tracks a tool invocation's progress.
type UsageStatus string

const (
	UsageExecuting UsageStatus = "executing"
	UsageCompleted UsageStatus = "completed"
	UsageError     UsageStatus = "error"
)

// Usage is the ephemeral descriptor of the invocation currently in flight
// or just completed. At most one exists per registry.
type Usage struct {
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args"`
	StartedAt time.Time      `json:"started_at"`
	Status    UsageStatus    `json:"status"`
	Result    string         `json:"result,omitempty"`
}

// defaultClearDelay is how long a finished usage record stays visible.
const defaultClearDelay = 3 * time.Second

// Registry maps tool names to handlers and tracks the current usage.
// Execution is sequential by contract (the session dispatches one batch
// at a time), so the single usage slot needs no extra coordination beyond
// the mutex guarding reads from other goroutines.
type Registry struct {
	mu         sync.Mutex
	tools      map[string]Tool
	order      []string
	usage      *Usage
	usageSeq   int
	observer   func(Usage)
	clearDelay time.Duration

	logger interface {
		Warn(msg string, args ...any)
		Debug(msg string, args ...any)
	}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]Tool),
		clearDelay: defaultClearDelay,
		logger:     log.Component("tools"),
	}
}

// SetClearDelay overrides how long a finished usage record lingers.
func (r *Registry) SetClearDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearDelay = d
}

// SetObserver registers a callback notified synchronously on every usage
// status change (executing, completed, error, cleared-as-zero-value).
func (r *Registry) SetObserver(fn func(Usage)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = fn
}

// Register adds a tool. Re-registering a name overwrites the previous
// handler with a warning.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		r.logger.Warn("tool re-registered, previous handler replaced", "tool", t.Name)
	} else {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Declarations returns the registered tool schemas in registration order.
func (r *Registry) Declarations() []Declaration {
	r.mu.Lock()
	defer r.mu.Unlock()
	decls := make([]Declaration, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		decls = append(decls, Declaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return decls
}

// Usage returns the current usage record, if one is active.
func (r *Registry) Usage() (Usage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usage == nil {
		return Usage{}, false
	}
	return *r.usage, true
}

// Execute dispatches a tool call and returns its result string. It never
// returns an error past this boundary: a missing tool, a handler error and
// a handler panic all come back as error strings so the conversation can
// continue.
func (r *Registry) Execute(name string, args map[string]any) string {
	r.mu.Lock()
	tool, ok := r.tools[name]
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("tool not found", "tool", name)
		return fmt.Sprintf("Error: tool %q not found", name)
	}

	seq := r.beginUsage(name, args)

	result, err := r.invoke(tool, args)
	if err != nil {
		r.finishUsage(seq, UsageError, err.Error())
		return fmt.Sprintf("Error executing %s: %v", name, err)
	}

	r.finishUsage(seq, UsageCompleted, result)
	return result
}

// invoke runs the handler, converting a panic into an error.
func (r *Registry) invoke(tool Tool, args map[string]any) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, rec)
		}
	}()
	if tool.Handler == nil {
		return "", fmt.Errorf("tool %s has no handler", tool.Name)
	}
	return tool.Handler(args)
}

func (r *Registry) beginUsage(name string, args map[string]any) int {
	r.mu.Lock()
	r.usageSeq++
	seq := r.usageSeq
	r.usage = &Usage{
		Tool:      name,
		Args:      args,
		StartedAt: time.Now(),
		Status:    UsageExecuting,
	}
	u := *r.usage
	observer := r.observer
	r.mu.Unlock()

	r.logger.Debug("tool executing", "tool", name)
	if observer != nil {
		observer(u)
	}
	return seq
}

func (r *Registry) finishUsage(seq int, status UsageStatus, result string) {
	r.mu.Lock()
	if r.usage == nil || seq != r.usageSeq {
		r.mu.Unlock()
		return
	}
	r.usage.Status = status
	r.usage.Result = result
	u := *r.usage
	observer := r.observer
	delay := r.clearDelay
	r.mu.Unlock()

	if observer != nil {
		observer(u)
	}

	// The finished record stays visible briefly, then clears unless a
	// newer invocation has claimed the slot.
	time.AfterFunc(delay, func() {
		r.mu.Lock()
		if r.usage != nil && seq == r.usageSeq {
			r.usage = nil
		}
		observer := r.observer
		cleared := r.usage == nil
		r.mu.Unlock()
		if cleared && observer != nil {
			observer(Usage{})
		}
	})
}
