// Package port holds the definition of the line events of a monitored signal
package port

import (
	"io"
	"math"
	"time"
)

// Event is a recorded level change of the line.
type Event struct {
	// Timestamp indicates the time (in seconds) the event was detected.
	Timestamp float64
	// Level is the line level after the event (true = high).
	Level bool
}

// Source is the interface implemented by an ordered stream of line events.
//
// Next returns io.EOF after the last event.
type Source interface {
	Next() (Event, error)
}

// SliceSource serves events from an in-memory slice.
type SliceSource struct {
	events []Event
	ix     int
}

// NewSliceSource returns a Source reading the given events in order.
func NewSliceSource(events []Event) *SliceSource {
	return &SliceSource{events: events}
}

// Next returns the next event of the slice.
func (s *SliceSource) Next() (Event, error) {
	if s.ix >= len(s.events) {
		return Event{}, io.EOF
	}

	e := s.events[s.ix]
	s.ix++
	return e, nil
}

// ChanSource serves events received on a channel, e.g. from a gpio line.
//
// If no event arrives within Quiet, a guard event repeating the last level is
// returned, so a decoder waiting for the line to settle can finish the
// current frame. The guard lies Quiet/2 after the last event to stay ahead of
// edges which are already queued but not yet delivered; a late edge older than
// the guard is moved just behind it.
type ChanSource struct {
	// C receives the line events, closing C ends the stream.
	C <-chan Event
	// Quiet is the idle time after which a guard event is generated, 0 disables guards.
	Quiet time.Duration

	last    Event
	hasLast bool
	guarded bool
	guardTs float64
}

// NewChanSource returns a Source reading events from c.
func NewChanSource(c <-chan Event, quiet time.Duration) *ChanSource {
	return &ChanSource{C: c, Quiet: quiet}
}

// Next blocks until the next event (or guard event) is available.
func (s *ChanSource) Next() (Event, error) {
	if s.Quiet <= 0 || !s.hasLast || s.guarded {
		e, open := <-s.C
		if !open {
			return Event{}, io.EOF
		}
		return s.accept(e), nil
	}

	timer := time.NewTimer(s.Quiet)
	defer timer.Stop()

	select {
	case e, open := <-s.C:
		if !open {
			return Event{}, io.EOF
		}
		return s.accept(e), nil
	case <-timer.C:
		s.guarded = true
		s.guardTs = s.last.Timestamp + s.Quiet.Seconds()/2
		return Event{Timestamp: s.guardTs, Level: s.last.Level}, nil
	}
}

func (s *ChanSource) accept(e Event) Event {
	if s.guarded && e.Timestamp <= s.guardTs {
		e.Timestamp = math.Nextafter(s.guardTs, math.Inf(1))
	}

	s.last = e
	s.hasLast = true
	s.guarded = false
	return e
}
