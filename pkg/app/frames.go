package app

import (
	"sync"

	"uartdec/pkg/uart"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// History keeps the most recent decoded frames.
type History struct {
	sync.Mutex
	// size is the maximum count of kept frames.
	size   int
	frames []uart.Frame
	// total and invalid count all frames added so far.
	total   int
	invalid int
}

// NewHistory returns a history keeping up to size frames.
func NewHistory(size int) *History {
	return &History{size: size}
}

// Add appends a frame and drops the oldest frame if the history is full.
func (h *History) Add(f uart.Frame) {
	h.Lock()
	defer h.Unlock()

	h.total++
	if !f.Valid() {
		h.invalid++
	}
	if h.size <= 0 {
		return
	}

	if len(h.frames) == h.size {
		copy(h.frames, h.frames[1:])
		h.frames = h.frames[:h.size-1]
	}
	h.frames = append(h.frames, f)
}

// Frames returns a copy of the kept frames, oldest first.
func (h *History) Frames() []uart.Frame {
	h.Lock()
	defer h.Unlock()

	frames := make([]uart.Frame, len(h.frames))
	copy(frames, h.frames)
	return frames
}

// Counts returns the count of all frames and of frames with a wrong stop bit.
func (h *History) Counts() (total, invalid int) {
	h.Lock()
	defer h.Unlock()
	return h.total, h.invalid
}

// HandleFrames returns the recently decoded frames.
//  query parameter valid=true omits frames with a wrong stop bit.
func (app *App) HandleFrames() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request frames")

		frames := app.history.Frames()
		if ctx.QueryBool("valid") {
			valid := frames[:0]
			for _, f := range frames {
				if f.Valid() {
					valid = append(valid, f)
				}
			}
			frames = valid
		}

		total, invalid := app.history.Counts()
		return ctx.JSON(fiber.Map{
			"session": app.Session(),
			"total":   total,
			"invalid": invalid,
			"frames":  frames,
		})
	}
}
