package app

import (
	"context"
	"net/url"

	"uartdec/pkg/app/config"
	"uartdec/pkg/mqtt"
	"uartdec/pkg/raspberry"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/womat/debug"
	"golang.org/x/sync/errgroup"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// session identifies this run of the application in published frames
	session uuid.UUID

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// chip and line are the handlers to the monitored gpio line
	chip *raspberry.Chip
	line *raspberry.Line

	// history holds the recently decoded frames
	history *History
	// decoded is closed when the decoding of the gpio line is terminated
	decoded chan struct{}

	// group runs the services, ctx is cancelled if a service fails
	group *errgroup.Group
	ctx   context.Context
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	group, ctx := errgroup.WithContext(context.Background())

	app := &App{
		config:    config,
		urlParsed: u,
		session:   uuid.New(),

		web:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt:    mqtt.New(64),
		history: NewHistory(config.History),
		decoded: make(chan struct{}),

		group: group,
		ctx:   ctx,
	}

	// initDefaultRoutes should be always called last because it may access things
	// which must be initialized before
	app.initDefaultRoutes()
	return app, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	app.group.Go(func() error {
		app.mqtt.Service()
		return nil
	})

	if app.config.Webserver.URL != "" {
		app.group.Go(app.runWebServer)
	}

	if app.line != nil {
		app.group.Go(func() error {
			defer close(app.decoded)
			return app.decodeLine()
		})
	}

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if err = app.mqtt.Connect(app.config.MQTT.Connection, "uartdec-"+app.session.String()); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	if app.config.Gpio < 0 {
		debug.InfoLog.Print("gpio capture disabled")
		return nil
	}

	if app.chip, err = raspberry.Open(app.config.Chip); err != nil {
		debug.ErrorLog.Printf("can't open gpio: %v", err)
		return err
	}

	if app.line, err = app.chip.NewLine(app.config.Gpio, app.config.Terminator, 4096); err != nil {
		debug.ErrorLog.Printf("can't open line: %v", err)
		return err
	}

	return nil
}

// Shutdown returns the read only shutdown channel.
// Shutdown is closed when a service of the application fails. (see cmd/uartdec.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.ctx.Done()
}

// Session returns the id of this application run.
func (app *App) Session() string {
	return app.session.String()
}

// Close stops all services and waits until they are terminated.
func (app *App) Close() error {
	if app.line != nil {
		// closing the line ends the event stream, wait until pending frames are handled
		_ = app.line.Close()
		<-app.decoded
	}
	if app.chip != nil {
		_ = app.chip.Close()
	}

	_ = app.web.Shutdown()
	app.mqtt.Close()

	err := app.group.Wait()
	_ = app.mqtt.Disconnect()
	return err
}
