package app

import (
	"bytes"
	"errors"
	"strconv"

	"uartdec/pkg/capture"
	"uartdec/pkg/uart"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  See app.Run()
func (app *App) runWebServer() error {
	err := app.web.Listen(app.urlParsed.Host)
	if err != nil {
		debug.ErrorLog.Print(err)
	}
	return err
}

// HandleDecode decodes a saleae csv export posted as request body and returns the frames as csv.
//  query parameters:
//   channel ... name of the capture column (required)
//   baud    ... baud rate (required)
//   bits    ... data bits per frame (default 8)
//   all     ... also return frames with a wrong stop bit
//   verify  ... reject unstable start bits
//   tail    ... guard length in seconds after the last row (default 10)
//  example: curl --data-binary @capture.csv 'http://host:4000/decode?channel=UART_TX&baud=9600'
func (app *App) HandleDecode() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request decode")

		channel := ctx.Query("channel")
		if channel == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing query parameter channel")
		}

		baud, err := strconv.ParseFloat(ctx.Query("baud"), 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid query parameter baud")
		}

		o := capture.NewOptions(channel, baud)
		o.Config.Bits = ctx.QueryInt("bits", uart.DefaultBits)
		o.Config.VerifyStart = ctx.QueryBool("verify")
		o.All = ctx.QueryBool("all")
		o.Tail = ctx.QueryFloat("tail", capture.DefaultTail)

		var out bytes.Buffer
		s, err := capture.Convert(bytes.NewReader(ctx.Body()), &out, o)
		switch {
		case errors.Is(err, uart.ErrInvalidConfig), errors.Is(err, capture.ErrUnknownChannel),
			errors.Is(err, capture.ErrInvalidHeader), errors.Is(err, capture.ErrNoData):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}

		debug.DebugLog.Printf("decoded %v frames (%v invalid)", s.Frames, s.Invalid)
		ctx.Set("X-Frames", strconv.Itoa(s.Frames))
		ctx.Set("X-Invalid-Frames", strconv.Itoa(s.Invalid))
		ctx.Type("csv")
		return ctx.Send(out.Bytes())
	}
}
