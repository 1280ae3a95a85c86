package uart

import "uartdec/pkg/port"

// Encode generates the line events of the given frame values.
//
// The first start bit begins at start, gap idle bit periods separate the
// frames. Only level changes are generated, followed by a guard event one bit
// period after the last stop bit which marks the end of the line record.
func Encode(values []uint32, config Config, start float64, gap int) ([]port.Event, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if gap < 0 {
		gap = 0
	}

	period := config.BitPeriod()
	level := true
	var events []port.Event

	// cell is the index of the current bit cell, the cell timestamp is
	// always calculated from start.
	cell := 0
	set := func(high bool) {
		if high != level {
			events = append(events, port.Event{Timestamp: start + float64(cell)*period, Level: high})
			level = high
		}
		cell++
	}

	for n, v := range values {
		if n > 0 {
			for i := 0; i < gap; i++ {
				set(true)
			}
		}

		set(false)
		for i := 0; i < config.Bits; i++ {
			set(v&(1<<uint(i)) != 0)
		}
		set(true)
	}

	events = append(events, port.Event{Timestamp: start + float64(cell+1)*period, Level: level})
	return events, nil
}
