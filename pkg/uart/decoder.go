// Package uart is a software decoder for asynchronous serial frames
// (one start bit, data bits LSB first, one stop bit) recorded as line events.
//
// https://en.wikipedia.org/wiki/Universal_asynchronous_receiver-transmitter
package uart

import (
	"errors"
	"io"

	"github.com/womat/debug"
	"uartdec/pkg/port"
)

const (
	// idle is the process state to wait for a start bit.
	idle stateType = iota
	// inFrame is the process state to sample the data bits and the stop bit.
	inFrame
)

// stateType represents the state of the decoding process.
type stateType int

// Frame is a decoded uart frame.
type Frame struct {
	// Start is the time (in seconds) of the falling edge of the start bit.
	Start float64 `json:"start"`
	// Value holds the data bits, the first received bit is bit 0.
	Value uint32 `json:"value"`
	// Bits is the count of data bits.
	Bits int `json:"bits"`
	// StopBitOK is true, if the stop bit was sampled high.
	StopBitOK bool `json:"stopBitOk"`
	// Text is the printable rendering of Value.
	Text string `json:"text"`
}

// Valid reports whether the frame was terminated by a correct stop bit.
func (f Frame) Valid() bool {
	return f.StopBitOK
}

// Decoder represents the handler of the frame decoder.
type Decoder struct {
	config Config
	// period is the bit period in seconds.
	period float64
	// cursor reads the line events.
	cursor *Cursor

	// state contains the current decoding state (idle/inFrame).
	state stateType
	// start is the start bit of the current frame.
	start float64
	// resume is the instant after which the next start bit is searched.
	resume float64

	// frames is the count of emitted frames, invalid the count with a wrong stop bit.
	frames  int
	invalid int
}

// New initials a new Decoder reading the line events from src.
func New(src port.Source, config Config) (*Decoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	period := config.BitPeriod()
	c := NewCursor(src, period, config.IdleLevel)

	return &Decoder{
		config: config,
		period: period,
		cursor: c,
		state:  idle,
		resume: c.Position(),
	}, nil
}

// Next decodes the next frame.
// It returns io.EOF at the end of the stream. A trailing frame is emitted if
// the line has returned high by its stop instant, otherwise it is dropped.
func (d *Decoder) Next() (Frame, error) {
	for {
		switch d.state {
		case idle:
			start, err := d.cursor.NextFall(d.resume)
			if err != nil {
				return Frame{}, d.end(err)
			}

			if d.config.VerifyStart {
				mid := start + d.period/2
				high, err := d.cursor.LevelAt(mid)
				if err != nil {
					return Frame{}, d.end(err)
				}
				if high {
					debug.TraceLog.Printf("unstable start bit at %v", start)
					d.resume = mid
					continue
				}
			}

			d.start = start
			d.state = inFrame

		case inFrame:
			f, err := d.sample()
			if err != nil {
				return Frame{}, d.end(err)
			}

			d.state = idle
			d.frames++
			if !f.StopBitOK {
				d.invalid++
			}
			return f, nil
		}
	}
}

// Run decodes all frames and sends them to out. out is closed when the stream ends.
func (d *Decoder) Run(out chan<- Frame) error {
	defer close(out)

	for {
		f, err := d.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		out <- f
	}
}

// Stats returns the count of decoded frames and the count of frames with a wrong stop bit.
func (d *Decoder) Stats() (frames, invalid int) {
	return d.frames, d.invalid
}

// sample reads the data bits and the stop bit of the current frame.
// The start bit occupies the first bit period, every following bit is sampled
// in the middle of its cell.
//
// After the last event the line holds its level. A frame whose line is still
// low at the stop instant when the stream ends is incomplete and dropped.
func (d *Decoder) sample() (Frame, error) {
	var value uint32

	for i := 0; i < d.config.Bits; i++ {
		high, err := d.cursor.LevelAt(d.cursor.Instant(d.start, i+1))
		if err != nil && !errors.Is(err, ErrEndOfStream) {
			return Frame{}, err
		}
		if high {
			value |= 1 << uint(i)
		}
	}

	stopAt := d.cursor.Instant(d.start, d.config.Bits+1)
	stop, err := d.cursor.LevelAt(stopAt)
	switch {
	case errors.Is(err, ErrEndOfStream) && !stop:
		return Frame{}, err
	case err != nil && !errors.Is(err, ErrEndOfStream):
		return Frame{}, err
	}
	if err = d.cursor.Commit(stopAt); err != nil {
		return Frame{}, err
	}
	d.resume = stopAt

	return Frame{
		Start:     d.start,
		Value:     value,
		Bits:      d.config.Bits,
		StopBitOK: stop,
		Text:      Printable(value),
	}, nil
}

// end maps the end of the event stream to io.EOF.
func (d *Decoder) end(err error) error {
	if !errors.Is(err, ErrEndOfStream) {
		return err
	}

	if d.state == inFrame {
		debug.DebugLog.Printf("stream ends within frame at %v, frame dropped", d.start)
		d.state = idle
	}
	return io.EOF
}
