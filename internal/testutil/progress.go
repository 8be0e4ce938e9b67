// Package testutil provides test utilities for progress tracking.
package testutil

import "github.com/configrelay/relay/relaytypes"

// MockProgressTracker is a mock implementation of ProgressTracker for testing.
type MockProgressTracker struct {
	UpdateCalled   bool
	CompleteCalled bool
	ErrorCalled    bool
	Processed      int64
	LastError      error
	Outcomes       []relaytypes.TransferOutcome
}

// Update records a progress update.
func (m *MockProgressTracker) Update(processed int64, outcome relaytypes.TransferOutcome) {
	m.UpdateCalled = true
	m.Processed = processed
	m.Outcomes = append(m.Outcomes, outcome)
}

// Complete marks the run as complete.
func (m *MockProgressTracker) Complete() {
	m.CompleteCalled = true
}

// Error records an error.
func (m *MockProgressTracker) Error(err error) {
	m.ErrorCalled = true
	m.LastError = err
}

// Reset clears the mock tracker state.
func (m *MockProgressTracker) Reset() {
	m.UpdateCalled = false
	m.CompleteCalled = false
	m.ErrorCalled = false
	m.Processed = 0
	m.LastError = nil
	m.Outcomes = nil
}
