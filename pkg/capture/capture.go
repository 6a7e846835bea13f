// Package capture defines the boundary to the external speech-to-text
// collaborator. The core subsystem only consumes a typed event stream; the
// actual engine (native, chunked-audio, streaming) lives behind Source.
package capture

import (
	"context"
	"time"
)

// Kind classifies a capture event.
type Kind string

const (
	// KindPartial is an interim hypothesis that may still change.
	KindPartial Kind = "partial"
	// KindFinal is a committed utterance ready for the transcript.
	KindFinal Kind = "final"
	// KindError reports a capture engine failure.
	KindError Kind = "error"
)

// Event is one emission from the capture engine.
type Event struct {
	Kind       Kind
	Text       string
	Confidence float64
	Timestamp  time.Time
	Code       string
}

// Source is a speech-capture engine. Start begins emitting on Events;
// Stop ends the stream and closes the channel.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	IsListening() bool
	IsSupported() bool
	Events() <-chan Event
}
