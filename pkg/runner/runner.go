// Package runner abstracts the execution environment for tools that need
// to run commands on a machine. The concrete runner is selected once at
// startup and injected, instead of every tool re-detecting where it lives.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrUnavailable is returned when no execution environment exists (e.g.,
// the assistant is running somewhere with no shell and no bridge).
var ErrUnavailable = errors.New("runner: command execution unavailable")

// Runner executes a shell command and returns its combined output.
type Runner interface {
	// Run executes the command. Implementations return the output even
	// when the command exits non-zero, alongside the error.
	Run(ctx context.Context, command string) (string, error)

	// Available reports whether this runner can actually execute.
	Available() bool
}

// Select picks the execution environment once at startup: a remote bridge
// when configured, the native shell otherwise.
func Select(bridgeURL string) Runner {
	if bridgeURL != "" {
		return NewRemote(bridgeURL)
	}
	if _, err := exec.LookPath("sh"); err == nil {
		return Native{}
	}
	return Unavailable{}
}

// Native runs commands through the local shell.
type Native struct{}

// Run executes the command with sh -c and returns combined output.
func (Native) Run(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return output, fmt.Errorf("command failed: %w", err)
	}
	return output, nil
}

// Available always reports true for the native shell.
func (Native) Available() bool { return true }

// Unavailable is the stub for environments with no execution capability.
type Unavailable struct{}

// Run always fails with ErrUnavailable.
func (Unavailable) Run(ctx context.Context, command string) (string, error) {
	return "", ErrUnavailable
}

// Available always reports false.
func (Unavailable) Available() bool { return false }
