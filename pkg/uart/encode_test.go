package uart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uartdec/pkg/port"
)

func TestEncode(t *testing.T) {
	config := NewConfig(1)
	config.Bits = 4

	// 0b0110 LSB first: start 0, 0,1,1,0, stop 1
	events, err := Encode([]uint32{0x6}, config, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []port.Event{
		{Timestamp: 0, Level: false},
		{Timestamp: 2, Level: true},
		{Timestamp: 4, Level: false},
		{Timestamp: 5, Level: true},
		{Timestamp: 7, Level: true},
	}, events)
}

func TestEncodeGap(t *testing.T) {
	config := NewConfig(1)
	config.Bits = 2

	events, err := Encode([]uint32{0x3, 0x3}, config, 10, 2)
	require.NoError(t, err)

	assert.Equal(t, []port.Event{
		{Timestamp: 10, Level: false},
		{Timestamp: 11, Level: true},
		{Timestamp: 16, Level: false},
		{Timestamp: 17, Level: true},
		{Timestamp: 21, Level: true},
	}, events)
}

func TestEncodeInvalidConfig(t *testing.T) {
	_, err := Encode([]uint32{1}, Config{}, 0, 0)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
