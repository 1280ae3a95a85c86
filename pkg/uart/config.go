package uart

import (
	"errors"
	"fmt"
)

const (
	// DefaultBits is the default count of data bits per frame.
	DefaultBits = 8
	// MaxBits is the widest supported frame (the value is an uint32).
	MaxBits = 32
)

var ErrInvalidConfig = errors.New("invalid decoder configuration")

// Config defines the line parameters of the decoder.
type Config struct {
	// BaudRate is the bit rate of the line (bits per second).
	BaudRate float64 `yaml:"baudrate"`
	// Bits is the count of data bits per frame.
	Bits int `yaml:"bits"`
	// IdleLevel is the line level assumed before the first event.
	IdleLevel bool `yaml:"idlelevel"`
	// VerifyStart rejects start bits which aren't low half a bit period after the falling edge.
	VerifyStart bool `yaml:"verifystart"`
}

// NewConfig returns the default configuration (8 data bits, idle high) for the given baud rate.
func NewConfig(baudRate float64) Config {
	return Config{
		BaudRate:  baudRate,
		Bits:      DefaultBits,
		IdleLevel: true,
	}
}

// BitPeriod returns the duration of one bit cell in seconds.
func (c Config) BitPeriod() float64 {
	return 1 / c.BaudRate
}

// Validate checks the configuration before any decoding begins.
func (c Config) Validate() error {
	if !(c.BaudRate > 0) {
		return fmt.Errorf("%w: baud rate %v must be positive", ErrInvalidConfig, c.BaudRate)
	}
	if c.Bits < 1 || c.Bits > MaxBits {
		return fmt.Errorf("%w: %v data bits out of range 1..%v", ErrInvalidConfig, c.Bits, MaxBits)
	}
	return nil
}
