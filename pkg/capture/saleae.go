// Package capture reads logic analyzer captures and writes decoded frames as csv
package capture

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/womat/debug"
	"uartdec/pkg/port"
	"uartdec/pkg/uart"
)

// DefaultTail is the default guard length (in seconds) appended after the last row.
const DefaultTail = 10.0

// timeColumn is the name of the first column of a saleae export.
const timeColumn = "Time[s]"

var (
	ErrInvalidHeader  = errors.New("invalid capture header")
	ErrUnknownChannel = errors.New("unknown channel")
	ErrNoData         = errors.New("capture contains no data")
	ErrInvalidRow     = errors.New("invalid capture row")
)

// Reader reads the events of one channel from a saleae csv export.
//
// The export starts with a header (Time[s], <channel>, ...) followed by one
// row per change of any channel. Rows which don't change the selected channel
// are skipped. After the last row, a guard event repeating the last level is
// appended Tail seconds later, so frames close to the end of the capture can
// be completed.
type Reader struct {
	r *csv.Reader
	// channels are the channel names of the header.
	channels []string
	// column is the csv column of the selected channel.
	column int
	// line is the current line number.
	line int

	tail     float64
	decimals int

	// initial is the level of the first row.
	initial bool
	// pending is the first row, which is read by NewReader.
	pending    *port.Event
	last       port.Event
	hasLast    bool
	guardAdded bool
}

// NewReader reads the header and the first row of the capture and selects the given channel.
// tail defines the guard length in seconds, 0 disables the guard.
func NewReader(in io.Reader, channel string, tail float64) (*Reader, error) {
	r := &Reader{
		r:    csv.NewReader(in),
		tail: tail,
	}
	r.r.TrimLeadingSpace = true
	r.r.ReuseRecord = true

	header, err := r.r.Read()
	if err == io.EOF {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	r.line++

	if len(header) < 2 || strings.TrimSpace(header[0]) != timeColumn {
		return nil, fmt.Errorf("%w: expected %q as first column", ErrInvalidHeader, timeColumn)
	}

	r.column = -1
	for i, name := range header[1:] {
		name = strings.TrimSpace(name)
		r.channels = append(r.channels, name)
		if name == channel {
			r.column = i + 1
		}
	}
	if r.column < 0 {
		return nil, fmt.Errorf("%w %q, available channels: %v", ErrUnknownChannel, channel, strings.Join(r.channels, ", "))
	}

	first, err := r.readRow()
	if err == io.EOF {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}

	r.initial = first.Level
	r.pending = &first
	debug.DebugLog.Printf("capture channel %q (column %v), initial level %v", channel, r.column, r.initial)
	return r, nil
}

// Channels returns the channel names of the capture.
func (r *Reader) Channels() []string {
	return r.channels
}

// Initial returns the level of the selected channel in the first row.
func (r *Reader) Initial() bool {
	return r.initial
}

// Decimals returns the highest count of decimal places of the timestamps read so far.
// Trailing zeros aren't counted.
func (r *Reader) Decimals() int {
	return r.decimals
}

// Next returns the next level change of the selected channel.
func (r *Reader) Next() (port.Event, error) {
	if r.pending != nil {
		e := *r.pending
		r.pending = nil
		return r.accept(e), nil
	}

	for {
		e, err := r.readRow()
		if err == io.EOF {
			return r.guard()
		}
		if err != nil {
			return port.Event{}, err
		}

		if e.Timestamp <= r.last.Timestamp {
			if e.Timestamp == r.last.Timestamp {
				return port.Event{}, fmt.Errorf("line %v: %w: %v", r.line, uart.ErrDuplicateTimestamp, e.Timestamp)
			}
			return port.Event{}, fmt.Errorf("line %v: %w: %v after %v", r.line, uart.ErrUnsorted, e.Timestamp, r.last.Timestamp)
		}

		if e.Level == r.last.Level {
			// the timestamp is kept to check the ordering of the next rows
			r.last.Timestamp = e.Timestamp
			continue
		}

		return r.accept(e), nil
	}
}

func (r *Reader) accept(e port.Event) port.Event {
	r.last = e
	r.hasLast = true
	return e
}

// guard returns the guard event once and io.EOF afterwards.
func (r *Reader) guard() (port.Event, error) {
	if r.guardAdded || !r.hasLast || r.tail <= 0 {
		return port.Event{}, io.EOF
	}

	r.guardAdded = true
	return port.Event{Timestamp: r.last.Timestamp + r.tail, Level: r.last.Level}, nil
}

// readRow reads the next csv row and parses timestamp and level of the selected channel.
func (r *Reader) readRow() (port.Event, error) {
	record, err := r.r.Read()
	if err != nil {
		if err == io.EOF {
			return port.Event{}, err
		}
		return port.Event{}, fmt.Errorf("%w: %v", ErrInvalidRow, err)
	}
	r.line++

	tsField := strings.TrimSpace(record[0])
	ts, err := strconv.ParseFloat(tsField, 64)
	if err != nil {
		return port.Event{}, fmt.Errorf("line %v: %w: timestamp %q", r.line, ErrInvalidRow, tsField)
	}

	if i := strings.IndexByte(tsField, '.'); i >= 0 {
		if d := len(strings.TrimRight(tsField[i+1:], "0")); d > r.decimals {
			r.decimals = d
		}
	}

	var level bool
	switch v := strings.TrimSpace(record[r.column]); v {
	case "0":
		level = false
	case "1":
		level = true
	default:
		return port.Event{}, fmt.Errorf("line %v: %w: level %q", r.line, ErrInvalidRow, v)
	}

	return port.Event{Timestamp: ts, Level: level}, nil
}
