package capture

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// timedLine matches "m:ss : Speaker : text" replay lines. The speaker field
// is dropped from the emitted text so the attribution path is exercised the
// same way live dictation would be.
var timedLine = regexp.MustCompile(`^(\d+):(\d{2})\s*:\s*[^:]+?\s*:\s*(.+)$`)

// FileSource replays a recorded transcript file as a stream of final
// events, for demos and tests. Lines in "m:ss : Speaker : text" format are
// paced by their timestamps (compressed by Speedup); plain lines are emitted
// at a fixed interval.
type FileSource struct {
	r        io.Reader
	interval time.Duration
	speedup  int

	mu        sync.Mutex
	listening bool
	cancel    context.CancelFunc
	events    chan Event
	done      chan struct{}
}

// FileOption configures a FileSource.
type FileOption func(*FileSource)

// WithInterval sets the pacing for untimed lines.
func WithInterval(d time.Duration) FileOption {
	return func(s *FileSource) { s.interval = d }
}

// WithSpeedup divides timed-line gaps by n, so an hour-long recording
// replays in minutes.
func WithSpeedup(n int) FileOption {
	return func(s *FileSource) {
		if n > 0 {
			s.speedup = n
		}
	}
}

// NewFileSource creates a replay source reading from r.
func NewFileSource(r io.Reader, opts ...FileOption) *FileSource {
	s := &FileSource{
		r:        r,
		interval: 500 * time.Millisecond,
		speedup:  1,
		events:   make(chan Event),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins replaying in the background.
func (s *FileSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listening {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.listening = true

	go s.replay(ctx)
	return nil
}

// Stop ends the replay and closes the event channel.
func (s *FileSource) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	listening := s.listening
	s.mu.Unlock()

	if !listening {
		return nil
	}
	cancel()
	<-s.done
	return nil
}

// IsListening reports whether the replay is running.
func (s *FileSource) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// IsSupported always reports true.
func (s *FileSource) IsSupported() bool { return true }

// Events returns the replay stream.
func (s *FileSource) Events() <-chan Event { return s.events }

func (s *FileSource) replay(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.listening = false
		s.mu.Unlock()
		close(s.events)
		close(s.done)
	}()

	scanner := bufio.NewScanner(s.r)
	lastOffset := time.Duration(-1)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		text := line
		wait := s.interval
		if m := timedLine.FindStringSubmatch(line); m != nil {
			minutes, _ := strconv.Atoi(m[1])
			seconds, _ := strconv.Atoi(m[2])
			offset := time.Duration(minutes*60+seconds) * time.Second
			if lastOffset >= 0 && offset > lastOffset {
				wait = (offset - lastOffset) / time.Duration(s.speedup)
			}
			lastOffset = offset
			text = strings.TrimSpace(m[3])
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		select {
		case <-ctx.Done():
			return
		case s.events <- Event{Kind: KindFinal, Text: text, Timestamp: time.Now()}:
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case s.events <- Event{Kind: KindError, Code: "read_failure", Timestamp: time.Now()}:
		case <-ctx.Done():
		}
	}
}
