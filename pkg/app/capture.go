package app

import (
	"uartdec/pkg/port"
	"uartdec/pkg/uart"

	"github.com/womat/debug"
)

// message is the mqtt payload of a decoded frame.
type message struct {
	Session string `json:"session"`
	uart.Frame
}

// decodeLine decodes the edges of the gpio line until the line is closed.
func (app *App) decodeLine() error {
	cfg := app.config.UART
	if cfg.IdleLevel != app.line.Initial {
		debug.InfoLog.Printf("line level %v differs from configured idle level %v", app.line.Initial, cfg.IdleLevel)
	}

	d, err := uart.New(port.NewChanSource(app.line.C, app.config.Quiet), cfg)
	if err != nil {
		app.drain()
		return err
	}

	debug.InfoLog.Printf("decoding gpio %v: %v baud, %v data bits", app.config.Gpio, cfg.BaudRate, cfg.Bits)

	frames := make(chan uart.Frame, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for f := range frames {
			app.handleFrame(f)
		}
	}()

	err = d.Run(frames)
	<-done

	n, invalid := d.Stats()
	debug.InfoLog.Printf("decoding gpio %v stopped: %v frames, %v invalid", app.config.Gpio, n, invalid)

	if err != nil {
		debug.ErrorLog.Printf("decoding gpio %v: %v", app.config.Gpio, err)
		app.drain()
	}
	return err
}

// drain discards the remaining line events, so the gpio event handler never blocks.
func (app *App) drain() {
	go func() {
		for range app.line.C {
		}
	}()
}

// handleFrame saves the frame to the history and sends it to the mqtt broker.
func (app *App) handleFrame(f uart.Frame) {
	debug.TraceLog.Printf("frame: %+v", f)
	app.history.Add(f)

	if !f.Valid() && !app.config.MQTT.All {
		return
	}
	if app.config.MQTT.Connection == "" {
		return
	}

	if err := app.mqtt.Publish(app.config.MQTT.Topic, message{Session: app.Session(), Frame: f}); err != nil {
		debug.ErrorLog.Printf("publish frame: %v", err)
	}
}
