package capture

import (
	"context"
	"errors"
)

// NopSource is the no-capture source. It reports unsupported, which makes
// the session degrade to manual-entry-only mode.
type NopSource struct {
	events chan Event
}

// NewNopSource creates a NopSource.
func NewNopSource() *NopSource {
	return &NopSource{events: make(chan Event)}
}

// Start always fails; there is no engine to start.
func (s *NopSource) Start(context.Context) error {
	return errors.New("speech capture not available")
}

// Stop is a no-op.
func (s *NopSource) Stop() error { return nil }

// IsListening always reports false.
func (s *NopSource) IsListening() bool { return false }

// IsSupported always reports false.
func (s *NopSource) IsSupported() bool { return false }

// Events returns a channel that never emits.
func (s *NopSource) Events() <-chan Event { return s.events }
