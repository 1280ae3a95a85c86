package capture

import (
	"encoding/csv"
	"io"
	"strconv"

	"uartdec/pkg/port"
)

// WriteEvents writes the events as a saleae csv export with a single channel.
func WriteEvents(w io.Writer, channel string, events []port.Event, decimals int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{timeColumn, channel}); err != nil {
		return err
	}

	for _, e := range events {
		level := "0"
		if e.Level {
			level = "1"
		}
		if err := cw.Write([]string{strconv.FormatFloat(e.Timestamp, 'f', decimals, 64), level}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WithIdle prepends a row holding the idle level. The row is at 0, or one bit
// period before the first event if that event isn't a bit period after 0.
func WithIdle(events []port.Event, idle bool, period float64) []port.Event {
	ts := 0.0
	if len(events) > 0 && events[0].Timestamp-period < ts {
		ts = events[0].Timestamp - period
	}
	return append([]port.Event{{Timestamp: ts, Level: idle}}, events...)
}
