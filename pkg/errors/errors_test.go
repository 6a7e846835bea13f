package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelChecks(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", ErrNotFound, IsNotFound},
		{"validation", ErrValidation, IsValidation},
		{"invalid state", ErrInvalidState, IsInvalidState},
		{"in flight", ErrInFlight, IsInFlight},
		{"duplicate", ErrDuplicate, IsDuplicate},
		{"unavailable", ErrUnavailable, IsUnavailable},
		{"superseded", ErrSuperseded, IsSuperseded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("check failed for bare sentinel")
			}
			wrapped := fmt.Errorf("dispatching insight: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("check failed for wrapped sentinel")
			}
			if tt.check(errors.New("unrelated")) {
				t.Errorf("check matched unrelated error")
			}
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	if errors.Is(ErrInFlight, ErrDuplicate) {
		t.Error("ErrInFlight and ErrDuplicate must be distinct")
	}
	if IsInFlight(fmt.Errorf("wrap: %w", ErrUnavailable)) {
		t.Error("IsInFlight matched ErrUnavailable")
	}
}
