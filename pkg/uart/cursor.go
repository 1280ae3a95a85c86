package uart

import (
	"errors"
	"fmt"
	"io"
	"math"

	"uartdec/pkg/port"
)

var (
	// ErrEndOfStream is returned for queries at or beyond the last event of an
	// exhausted stream. The line holds the level of the last event.
	ErrEndOfStream = errors.New("end of event stream")
	// ErrUnsorted is returned if an event is older than its predecessor.
	ErrUnsorted = errors.New("event timestamps are not sorted")
	// ErrDuplicateTimestamp is returned if two events share a timestamp.
	ErrDuplicateTimestamp = errors.New("duplicate event timestamp")
	// ErrRewind is returned for queries before the committed cursor position.
	ErrRewind = errors.New("query before cursor position")
)

// Cursor answers level queries on an event stream which is read forward only.
//
// LevelAt looks ahead without moving the cursor, only Commit and NextFall
// move the committed position. Events behind the committed position are
// released, so memory is bound by the look-ahead of a single frame.
type Cursor struct {
	src port.Source
	// period is the bit period in seconds.
	period float64

	// pos is the committed position.
	pos float64
	// level is the line level at the committed position.
	level bool
	// ahead holds the pulled events after pos.
	ahead []port.Event

	// last is the timestamp of the last pulled event.
	last    float64
	hasLast bool
	eof     bool
}

// NewCursor returns a cursor positioned before the first event of src.
func NewCursor(src port.Source, period float64, idle bool) *Cursor {
	return &Cursor{
		src:    src,
		period: period,
		pos:    math.Inf(-1),
		level:  idle,
	}
}

// Position returns the committed position.
func (c *Cursor) Position() float64 {
	return c.pos
}

// Instant returns the sampling instant in the middle of the bit cell which
// starts the given count of bit periods after ref.
// The offset is always computed from ref, so long frames don't accumulate
// rounding errors.
func (c *Cursor) Instant(ref float64, periods int) float64 {
	return ref + (0.5+float64(periods))*c.period
}

// LevelAt returns the line level at t: the level of the latest event with
// timestamp <= t. The committed position is not changed.
//
// If the stream ends before an event later than t is known, the held level
// is returned together with ErrEndOfStream.
func (c *Cursor) LevelAt(t float64) (bool, error) {
	if t < c.pos {
		return false, fmt.Errorf("%w: %v < %v", ErrRewind, t, c.pos)
	}

	level := c.level
	for i := 0; ; i++ {
		if i == len(c.ahead) {
			if err := c.pull(); err != nil {
				return level, err
			}
		}

		e := c.ahead[i]
		if e.Timestamp > t {
			return level, nil
		}
		level = e.Level
	}
}

// Commit moves the committed position forward to t.
// Committing beyond the end of the stream keeps the last level.
func (c *Cursor) Commit(t float64) error {
	if t < c.pos {
		return fmt.Errorf("%w: %v < %v", ErrRewind, t, c.pos)
	}

	for {
		if len(c.ahead) == 0 {
			err := c.pull()
			if errors.Is(err, ErrEndOfStream) {
				c.pos = t
				return nil
			}
			if err != nil {
				return err
			}
		}

		if c.ahead[0].Timestamp > t {
			c.pos = t
			return nil
		}
		c.pop()
	}
}

// NextFall commits to the first high to low transition strictly after t
// and returns its timestamp.
func (c *Cursor) NextFall(t float64) (float64, error) {
	if err := c.Commit(t); err != nil {
		return 0, err
	}

	for {
		if len(c.ahead) == 0 {
			if err := c.pull(); err != nil {
				return 0, err
			}
		}

		wasHigh := c.level
		e := c.pop()
		if wasHigh && !e.Level {
			return e.Timestamp, nil
		}
	}
}

// pop moves the committed position to the first event ahead.
func (c *Cursor) pop() port.Event {
	e := c.ahead[0]
	c.ahead = c.ahead[1:]

	c.pos = e.Timestamp
	c.level = e.Level
	return e
}

// pull reads the next event from the source and checks the ordering.
func (c *Cursor) pull() error {
	if c.eof {
		return ErrEndOfStream
	}

	e, err := c.src.Next()
	if err == io.EOF {
		c.eof = true
		return ErrEndOfStream
	}
	if err != nil {
		return err
	}

	if c.hasLast {
		switch {
		case e.Timestamp < c.last:
			return fmt.Errorf("%w: %v after %v", ErrUnsorted, e.Timestamp, c.last)
		case e.Timestamp == c.last:
			return fmt.Errorf("%w: %v", ErrDuplicateTimestamp, e.Timestamp)
		}
	}

	c.last = e.Timestamp
	c.hasLast = true
	c.ahead = append(c.ahead, e)
	return nil
}
