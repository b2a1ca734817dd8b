package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockTransport implements Transport for testing purposes
type MockTransport struct {
	mu           sync.Mutex
	Expectations map[string][]MockResponse
	Calls        []string
}

type MockResponse struct {
	Output string
	Error  error
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		Expectations: make(map[string][]MockResponse),
		Calls:        make([]string, 0),
	}
}

// Execute returns the queued responses for the command in order. The last
// queued response is sticky and answers every further call.
func (m *MockTransport) Execute(ctx context.Context, name string, args ...string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := CommandLine(name, args...)
	m.Calls = append(m.Calls, cmd)

	if resp, ok := m.next(cmd); ok {
		return resp.Output, resp.Error
	}

	// Check for prefix/pattern match (simplified)
	for k := range m.Expectations {
		if strings.Contains(cmd, k) {
			resp, _ := m.next(k)
			return resp.Output, resp.Error
		}
	}

	return "", fmt.Errorf("unexpected command: %s", cmd)
}

func (m *MockTransport) next(key string) (MockResponse, bool) {
	queue, ok := m.Expectations[key]
	if !ok || len(queue) == 0 {
		return MockResponse{}, false
	}
	resp := queue[0]
	if len(queue) > 1 {
		m.Expectations[key] = queue[1:]
	}
	return resp, true
}

// Helpers for Test Setup

func (m *MockTransport) OnExecute(cmd string, output string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Expectations[cmd] = []MockResponse{{Output: output, Error: err}}
}

// OnExecuteSeq queues several responses for the same command, e.g. an
// inspect that reports "running" twice before "exited".
func (m *MockTransport) OnExecuteSeq(cmd string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Expectations[cmd] = append([]MockResponse(nil), responses...)
}

func (m *MockTransport) AssertCalled(cmdFragment string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.Calls {
		if strings.Contains(call, cmdFragment) {
			return true
		}
	}
	return false
}

// CallCount returns how many recorded calls contain cmdFragment.
func (m *MockTransport) CallCount(cmdFragment string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, call := range m.Calls {
		if strings.Contains(call, cmdFragment) {
			n++
		}
	}
	return n
}
