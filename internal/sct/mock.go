package sct

import (
	"context"
	"path/filepath"
	"sync"
)

// RecordedCommand is one invocation seen by MockCommandRunner.
type RecordedCommand struct {
	Name string
	Args []string
}

// Base returns the command name without its directory.
func (c RecordedCommand) Base() string {
	return filepath.Base(c.Name)
}

// Arg returns the value following flag, or "" when absent.
func (c RecordedCommand) Arg(flag string) string {
	for i := 0; i < len(c.Args)-1; i++ {
		if c.Args[i] == flag {
			return c.Args[i+1]
		}
	}
	return ""
}

// MockCommandRunner implements CommandRunner for testing. It is safe for
// concurrent use.
type MockCommandRunner struct {
	mu       sync.Mutex
	commands []RecordedCommand

	// Handler produces the result for each call. When nil every call
	// succeeds with empty output.
	Handler func(ctx context.Context, name string, args []string) (*Result, error)
}

// NewMockCommandRunner creates a new MockCommandRunner.
func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{}
}

// Run records the command and delegates to Handler.
func (m *MockCommandRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	argsCopy := append([]string(nil), args...)

	m.mu.Lock()
	m.commands = append(m.commands, RecordedCommand{Name: name, Args: argsCopy})
	handler := m.Handler
	m.mu.Unlock()

	if handler == nil {
		return &Result{}, nil
	}
	return handler(ctx, name, argsCopy)
}

// Commands returns a copy of the recorded commands in call order.
func (m *MockCommandRunner) Commands() []RecordedCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedCommand(nil), m.commands...)
}

// CallCount returns the number of recorded commands.
func (m *MockCommandRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commands)
}

// LastCommand returns the most recent command, or nil if none.
func (m *MockCommandRunner) LastCommand() *RecordedCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.commands) == 0 {
		return nil
	}
	c := m.commands[len(m.commands)-1]
	return &c
}

// Reset clears all recorded commands.
func (m *MockCommandRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = nil
}
