package testutil

import (
	"context"
	"os"
	"strings"
	"sync"
)

func ReadTestOutputData(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	return data, nil
}

type MockResponse struct {
	Output string
	Err    error
}

// MockShell answers commands from a table keyed by the full command line.
// Unknown commands fall back to Default.
type MockShell struct {
	mu        sync.Mutex
	Responses map[string]MockResponse
	Default   MockResponse
	Commands  []string
}

func (m *MockShell) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmdline := strings.Join(append([]string{name}, args...), " ")

	m.mu.Lock()
	m.Commands = append(m.Commands, cmdline)
	resp, ok := m.Responses[cmdline]
	if !ok {
		resp = m.Default
	}
	m.mu.Unlock()

	return resp.Output, resp.Err
}

func (m *MockShell) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Commands...)
}
