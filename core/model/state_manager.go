// Package model provides the shared lifecycle pieces of every bayesnet
// learner: fitted-state tracking, training status and notes, hyperparameter
// validation and the JSON summary export.
package model

import (
	"sync"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// Status is the outcome of the last successful Fit.
type Status int

const (
	// StatusOK means training used every feature and raised no warning.
	StatusOK Status = iota
	// StatusWarning means training succeeded but left a diagnostic note.
	StatusWarning
)

func (s Status) String() string {
	if s == StatusWarning {
		return "WARNING"
	}
	return "OK"
}

// StateManager manages the fitted state of a model in a thread-safe manner.
// Learners embed it by composition rather than through a base class.
type StateManager struct {
	mu sync.RWMutex

	Fitted    bool
	NFeatures int
	NSamples  int
	Status    Status
	Notes     []string
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
}

// Reset clears everything a previous Fit recorded.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
	s.Status = StatusOK
	s.Notes = nil
}

// SetDimensions sets the number of features and samples seen during fitting.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// GetDimensions returns the number of features and samples seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// AddNote appends a diagnostic note.
func (s *StateManager) AddNote(note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Notes = append(s.Notes, note)
}

// GetNotes returns a copy of the notes recorded by the last Fit.
func (s *StateManager) GetNotes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.Notes...)
}

// SetStatus records the training status.
func (s *StateManager) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
}

// GetStatus returns the training status.
func (s *StateManager) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// RequireFitted returns a NotFittedError naming modelName and method when
// the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}
