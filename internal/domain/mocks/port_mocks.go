package mocks

import (
	"context"
	"sync"

	"github.com/user/logship/internal/domain"
)

// MockSink is a mock implementation of domain.Sink for testing.
type MockSink struct {
	mu       sync.Mutex
	batches  [][]domain.Record
	bearers  []string
	SendErrs []error // consumed one per call, before SendErr
	SendErr  error   // sticky error once SendErrs is exhausted
}

func (m *MockSink) Send(ctx context.Context, records []domain.Record, bearer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SendErrs) > 0 {
		err := m.SendErrs[0]
		m.SendErrs = m.SendErrs[1:]
		if err != nil {
			return err
		}
	} else if m.SendErr != nil {
		return m.SendErr
	}

	batch := make([]domain.Record, len(records))
	copy(batch, records)
	m.batches = append(m.batches, batch)
	m.bearers = append(m.bearers, bearer)
	return nil
}

// BatchCount reports how many batches were accepted so far.
func (m *MockSink) BatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// Batch returns the i-th accepted batch.
func (m *MockSink) Batch(i int) []domain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches[i]
}

// Bearer returns the bearer string the i-th batch was sent with.
func (m *MockSink) Bearer(i int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bearers[i]
}

// MockTokenSource is a mock implementation of domain.TokenSource.
type MockTokenSource struct {
	mu     sync.Mutex
	calls  int
	Bearer string
	Err    error
}

func (m *MockTokenSource) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	if m.Bearer == "" {
		return "Bearer test-token", nil
	}
	return m.Bearer, nil
}

// Calls reports how many times Token was invoked.
func (m *MockTokenSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
