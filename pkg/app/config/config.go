package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
	"uartdec/pkg/uart"
)

// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	// Gpio is the BCM number of the monitored line, a negative number disables the gpio capture.
	Gpio       int    `yaml:"gpio"`
	Chip       string `yaml:"chip"`
	Terminator string `yaml:"terminator"`
	// QuietInt is the idle time (ms) after which a pending frame is completed.
	QuietInt int           `yaml:"quiet"`
	Quiet    time.Duration `yaml:"-"`
	// History is the count of recent frames kept for the web service.
	History   int             `yaml:"history"`
	UART      uart.Config     `yaml:"uart"`
	Flag      FlagConfig      `yaml:"-"`
	Log       LogConfig       `yaml:"log"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	LogLevel   string
	LogFile    string
	ConfigFile string
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	Topic      string `yaml:"topic"`
	// All publishes frames with a wrong stop bit too.
	All bool `yaml:"all"`
}

// LogConfig defines the struct of the debug configuration and configuration file
type LogConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Gpio:       -1,
		Chip:       "gpiochip0",
		Terminator: "pullup",
		QuietInt:   100,
		History:    1000,
		UART:       uart.NewConfig(9600),
		Flag:       FlagConfig{},
		Log: LogConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"frames":  true,
				"decode":  true,
			},
		},
		MQTT: MQTTConfig{
			Connection: "",
			Topic:      "uartdec/frames",
		},
	}
}

// LoadConfig reads the configuration file (if defined), applies the flags and opens the log file.
func (c *Config) LoadConfig() error {
	if c.Flag.ConfigFile != "" {
		if err := c.readConfigFile(); err != nil {
			return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
		}
	}

	if err := c.SetLogConfig(); err != nil {
		return err
	}

	if err := c.UART.Validate(); err != nil {
		return err
	}
	if c.History < 0 {
		c.History = 0
	}

	c.Quiet = time.Duration(c.QuietInt) * time.Millisecond
	return nil
}

// SetLogConfig applies the log flags and opens the log file.
func (c *Config) SetLogConfig() error {
	if c.Flag.LogLevel != "" {
		c.Log.FlagString = c.Flag.LogLevel
	}
	if c.Flag.LogFile != "" {
		c.Log.FileString = c.Flag.LogFile
	}

	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open log file %q: %w", c.Log.FileString, err)
	}
	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Log section of global.Config
	switch c.Log.FlagString {
	case "trace", "full":
		c.Log.Flag = debug.Full
	case "debug":
		c.Log.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Log.Flag = debug.Standard
	default:
		return fmt.Errorf("unknown log level %q", c.Log.FlagString)
	}

	if c.Log.File != nil && c.Log.File != os.Stderr && c.Log.File != os.Stdout {
		_ = c.Log.File.Close()
	}

	switch c.Log.FileString {
	case "stderr":
		c.Log.File = os.Stderr
	case "stdout":
		c.Log.File = os.Stdout
	default:
		if c.Log.File, err = os.OpenFile(c.Log.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
