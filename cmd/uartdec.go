package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"uartdec/pkg/app"
	"uartdec/pkg/app/config"
	"uartdec/pkg/capture"
	"uartdec/pkg/uart"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "UART frame decoder for logic analyzer captures and gpio lines",
		Version: app.VERSION,
		Description: "Decode asynchronous serial frames (start bit, data bits LSB first, stop bit) from line edges" +
			"\n the edges are read from a saleae csv export or from a gpio line of a raspberry pi." +
			"\n Decoded frames are written as csv, published to mqtt and served by the web api.",
		UsageText: app.MODULE + " [--log standard|debug|trace] [--logfile <file>] command [arguments...]" +
			"\n\nEXAMPLE:" +
			"\n\tdecode channel UART_TX of capture.csv at 9600 baud" +
			"\n\t\t" + app.MODULE + " decode UART_TX 9600 capture.csv frames.csv" +
			"\n\tstart the gpio decoder and use the configuration file uartdec.yaml" +
			"\n\t\t" + app.MODULE + " --config /opt/womat/uartdec.yaml run",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE` (run)"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.LogLevel, Value: "standard", Usage: "`LEVEL` defines the log level (standard|debug|trace)"},
			&cli.StringFlag{Name: "logfile", Destination: &cfg.Flag.LogFile, Usage: "write the log to `FILE` (stderr|stdout|<file>)"},
		},
		Before: func(ctx *cli.Context) error {
			if err := cfg.SetLogConfig(); err != nil {
				return err
			}
			debug.SetDebug(cfg.Log.File, cfg.Log.Flag)
			return nil
		},
		After: func(ctx *cli.Context) error {
			if cfg.Log.File != nil && cfg.Log.File != os.Stderr && cfg.Log.File != os.Stdout {
				return cfg.Log.File.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			decodeCommand(),
			encodeCommand(),
			runCommand(cfg),
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))
	for _, c := range cliApp.Commands {
		sort.Sort(cli.FlagsByName(c.Flags))
	}

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "decode a channel of a saleae csv export",
		ArgsUsage: "<channel> <baud> [infile|-] [outfile|-]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "bits", Value: uart.DefaultBits, Usage: "data bits per frame"},
			&cli.BoolFlag{Name: "all", Usage: "also write frames with a wrong stop bit"},
			&cli.BoolFlag{Name: "verify-start", Usage: "reject start bits which are high in the middle of the bit"},
			&cli.BoolFlag{Name: "idle", Usage: "idle `LEVEL` of the line (default: level of the first row)"},
			&cli.Float64Flag{Name: "tail", Value: capture.DefaultTail, Usage: "guard `SECONDS` after the last row to complete a pending frame"},
			&cli.IntFlag{Name: "decimals", Value: -1, Usage: "decimal places of the timestamps (default: precision of the capture rows read so far, set it for a fixed row format)"},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() < 2 || ctx.NArg() > 4 {
				return cli.Exit("usage: decode "+ctx.Command.ArgsUsage, 2)
			}

			baud, err := strconv.ParseFloat(ctx.Args().Get(1), 64)
			if err != nil {
				return fmt.Errorf("invalid baud rate %q: %w", ctx.Args().Get(1), err)
			}

			o := capture.NewOptions(ctx.Args().Get(0), baud)
			o.Config.Bits = ctx.Int("bits")
			o.Config.VerifyStart = ctx.Bool("verify-start")
			o.All = ctx.Bool("all")
			o.Tail = ctx.Float64("tail")
			o.Decimals = ctx.Int("decimals")
			if ctx.IsSet("idle") {
				o.IdleFromCapture = false
				o.Config.IdleLevel = ctx.Bool("idle")
			}

			in, closeIn, err := openInput(ctx.Args().Get(2))
			if err != nil {
				return err
			}
			defer closeIn()

			out, closeOut, err := createOutput(ctx.Args().Get(3))
			if err != nil {
				return err
			}

			s, err := capture.Convert(in, out, o)
			if cerr := closeOut(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			debug.InfoLog.Printf("%v frames decoded, %v with wrong stop bit, %v written", s.Frames, s.Invalid, s.Written)
			return nil
		},
	}
}

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     "write text as uart line in saleae csv format",
		ArgsUsage: "<baud> <text> [outfile|-]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "bits", Value: uart.DefaultBits, Usage: "data bits per frame"},
			&cli.IntFlag{Name: "gap", Value: 0, Usage: "idle bit periods between frames"},
			&cli.Float64Flag{Name: "start", Value: 0.001, Usage: "`SECONDS` of the first start bit"},
			&cli.StringFlag{Name: "channel", Value: "UART_TX", Usage: "`NAME` of the capture column"},
			&cli.IntFlag{Name: "decimals", Value: 9, Usage: "decimal places of the timestamps"},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() < 2 || ctx.NArg() > 3 {
				return cli.Exit("usage: encode "+ctx.Command.ArgsUsage, 2)
			}

			baud, err := strconv.ParseFloat(ctx.Args().Get(0), 64)
			if err != nil {
				return fmt.Errorf("invalid baud rate %q: %w", ctx.Args().Get(0), err)
			}

			lineConfig := uart.NewConfig(baud)
			lineConfig.Bits = ctx.Int("bits")

			text := ctx.Args().Get(1)
			values := make([]uint32, len(text))
			for i := 0; i < len(text); i++ {
				values[i] = uint32(text[i])
			}

			events, err := uart.Encode(values, lineConfig, ctx.Float64("start"), ctx.Int("gap"))
			if err != nil {
				return err
			}
			// the first row holds the idle level
			events = capture.WithIdle(events, lineConfig.IdleLevel, lineConfig.BitPeriod())

			out, closeOut, err := createOutput(ctx.Args().Get(2))
			if err != nil {
				return err
			}

			err = capture.WriteEvents(out, ctx.String("channel"), events, ctx.Int("decimals"))
			if cerr := closeOut(); err == nil {
				err = cerr
			}
			return err
		},
	}
}

func runCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "decode the configured gpio line and start the web and mqtt services",
		Action: func(ctx *cli.Context) error {
			if err := cfg.LoadConfig(); err != nil {
				return err
			}
			debug.SetDebug(cfg.Log.File, cfg.Log.Flag)

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer func() {
				debug.InfoLog.Printf("closing app %s", app.Version())
				_ = a.Close()
			}()

			debug.InfoLog.Printf("starting app %s", app.Version())
			if err = a.Run(); err != nil {
				return err
			}

			// capture exit signals to ensure resources are released on exit.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case sig := <-quit:
				debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
			case <-a.Shutdown():
				debug.ErrorLog.Print("service terminated. Aborting...")
			}
			return nil
		},
	}
}

// openInput opens the file name for reading, an empty name or "-" is stdin.
func openInput(name string) (io.Reader, func(), error) {
	if name == "" || name == "-" {
		return bufio.NewReader(os.Stdin), func() {}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return bufio.NewReader(f), func() { _ = f.Close() }, nil
}

// createOutput creates the file name for writing, an empty name or "-" is stdout.
func createOutput(name string) (io.Writer, func() error, error) {
	if name == "" || name == "-" {
		w := bufio.NewWriter(os.Stdout)
		return w, w.Flush, nil
	}

	f, err := os.Create(name)
	if err != nil {
		return nil, nil, err
	}
	w := bufio.NewWriter(f)
	return w, func() error {
		if err := w.Flush(); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}, nil
}
