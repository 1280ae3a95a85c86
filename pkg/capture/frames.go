package capture

import (
	"encoding/csv"
	"io"
	"strconv"

	"uartdec/pkg/uart"
)

// FrameHeader is the header of the frame csv.
// The column order is read by downstream tools and must not change.
var FrameHeader = []string{"timestamp(s)", "byte", "isFrameValid", "subascii"}

// FrameWriter writes decoded frames as csv rows.
type FrameWriter struct {
	w *csv.Writer
	// decimals returns the count of decimal places of the timestamp column.
	decimals func() int
}

// NewFrameWriter returns a writer formatting the timestamps with the decimal places returned by decimals.
func NewFrameWriter(w io.Writer, decimals func() int) *FrameWriter {
	return &FrameWriter{
		w:        csv.NewWriter(w),
		decimals: decimals,
	}
}

// WriteHeader writes the csv header.
func (fw *FrameWriter) WriteHeader() error {
	return fw.w.Write(FrameHeader)
}

// Write writes one frame.
func (fw *FrameWriter) Write(f uart.Frame) error {
	valid := "0"
	if f.Valid() {
		valid = "1"
	}

	return fw.w.Write([]string{
		strconv.FormatFloat(f.Start, 'f', fw.decimals(), 64),
		strconv.FormatUint(uint64(f.Value), 10),
		valid,
		f.Text,
	})
}

// Flush writes any buffered rows to the underlying writer.
func (fw *FrameWriter) Flush() error {
	fw.w.Flush()
	return fw.w.Error()
}
