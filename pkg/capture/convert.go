package capture

import (
	"fmt"
	"io"

	"github.com/womat/debug"
	"uartdec/pkg/uart"
)

// Options defines how a capture is converted to frames.
type Options struct {
	// Channel is the name of the capture column holding the uart line.
	Channel string
	// Config is the decoder configuration.
	Config uart.Config
	// IdleFromCapture uses the first row of the channel as idle level instead of Config.IdleLevel.
	IdleFromCapture bool
	// All writes frames with a wrong stop bit too.
	All bool
	// Tail is the guard length (seconds) after the last row.
	Tail float64
	// Decimals fixes the decimal places of the timestamps, a negative value uses the precision of the capture.
	Decimals int
}

// NewOptions returns the default options for the given channel and baud rate.
func NewOptions(channel string, baudRate float64) Options {
	return Options{
		Channel:         channel,
		Config:          uart.NewConfig(baudRate),
		IdleFromCapture: true,
		Tail:            DefaultTail,
		Decimals:        -1,
	}
}

// Stats summarizes a conversion.
type Stats struct {
	// Frames is the count of decoded frames, Invalid the count with a wrong stop bit.
	Frames  int
	Invalid int
	// Written is the count of rows written.
	Written int
}

// Convert decodes the selected channel of a saleae capture and writes the frames as csv.
// Rows are written as soon as a frame is decoded, the capture isn't held in memory.
func Convert(in io.Reader, out io.Writer, o Options) (Stats, error) {
	var s Stats

	if err := o.Config.Validate(); err != nil {
		return s, err
	}

	r, err := NewReader(in, o.Channel, o.Tail)
	if err != nil {
		return s, err
	}

	config := o.Config
	if o.IdleFromCapture {
		config.IdleLevel = r.Initial()
	}

	d, err := uart.New(r, config)
	if err != nil {
		return s, err
	}

	decimals := r.Decimals
	if o.Decimals >= 0 {
		decimals = func() int { return o.Decimals }
	}

	w := NewFrameWriter(out, decimals)
	if err = w.WriteHeader(); err != nil {
		return s, err
	}

	for {
		f, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = w.Flush()
			return s, fmt.Errorf("decoding channel %q: %w", o.Channel, err)
		}

		s.Frames++
		if !f.Valid() {
			s.Invalid++
			if !o.All {
				continue
			}
		}

		if err = w.Write(f); err != nil {
			return s, err
		}
		s.Written++
	}

	debug.DebugLog.Printf("channel %q: %v frames, %v invalid, %v written", o.Channel, s.Frames, s.Invalid, s.Written)
	return s, w.Flush()
}
