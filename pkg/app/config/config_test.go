package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uartdec/pkg/uart"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "uartdec.yaml")
	require.NoError(t, os.WriteFile(name, []byte(content), 0o600))
	return name
}

func TestDefaults(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.LoadConfig())

	assert.Equal(t, -1, c.Gpio)
	assert.Equal(t, 100*time.Millisecond, c.Quiet)
	assert.Equal(t, uart.NewConfig(9600), c.UART)
	assert.Equal(t, os.Stderr, c.Log.File)
	assert.True(t, c.Webserver.Webservices["decode"])
}

func TestLoadConfig(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeConfig(t, `
gpio: 17
terminator: none
quiet: 250
history: 10
uart:
  baudrate: 115200
  bits: 7
  idlelevel: true
  verifystart: true
log:
  flag: debug
  file: stdout
webserver:
  url: http://127.0.0.1:4001
  webservices:
    version: true
    decode: false
mqtt:
  connection: tcp://broker:1883
  topic: house/uart
  all: true
`)
	require.NoError(t, c.LoadConfig())

	assert.Equal(t, 17, c.Gpio)
	assert.Equal(t, "none", c.Terminator)
	assert.Equal(t, 250*time.Millisecond, c.Quiet)
	assert.Equal(t, 10, c.History)
	assert.Equal(t, uart.Config{BaudRate: 115200, Bits: 7, IdleLevel: true, VerifyStart: true}, c.UART)
	assert.Equal(t, os.Stdout, c.Log.File)
	assert.Equal(t, "http://127.0.0.1:4001", c.Webserver.URL)
	assert.False(t, c.Webserver.Webservices["decode"])
	assert.Equal(t, "house/uart", c.MQTT.Topic)
	assert.True(t, c.MQTT.All)
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeConfig(t, "log:\n  flag: debug\n")
	c.Flag.LogLevel = "trace"
	c.Flag.LogFile = filepath.Join(t.TempDir(), "uartdec.log")
	require.NoError(t, c.LoadConfig())
	defer func() { _ = c.Log.File.Close() }()

	assert.Equal(t, "trace", c.Log.FlagString)
	assert.FileExists(t, c.Flag.LogFile)
}

func TestLoadConfigErrors(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, c.LoadConfig())

	c = NewConfig()
	c.Flag.ConfigFile = writeConfig(t, "uart:\n  baudrate: 0\n  bits: 8\n")
	assert.True(t, errors.Is(c.LoadConfig(), uart.ErrInvalidConfig))

	c = NewConfig()
	c.Flag.LogLevel = "verbose"
	assert.Error(t, c.LoadConfig())
}
