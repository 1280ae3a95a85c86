package port

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceSource(t *testing.T) {
	src := NewSliceSource([]Event{{Timestamp: 0, Level: false}, {Timestamp: 1, Level: true}})

	e, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Timestamp: 0, Level: false}, e)

	e, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Timestamp: 1, Level: true}, e)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestChanSourceClosed(t *testing.T) {
	c := make(chan Event, 2)
	c <- Event{Timestamp: 1, Level: false}
	close(c)

	src := NewChanSource(c, 0)
	e, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.Timestamp)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestChanSourceGuard(t *testing.T) {
	c := make(chan Event, 1)
	src := NewChanSource(c, 20*time.Millisecond)

	c <- Event{Timestamp: 5, Level: true}
	e, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 5.0, e.Timestamp)

	// nothing arrives: the guard repeats the last level
	g, err := src.Next()
	require.NoError(t, err)
	assert.True(t, g.Level)
	assert.InDelta(t, 5.01, g.Timestamp, 1e-9)

	// a late edge older than the guard stays ordered
	c <- Event{Timestamp: 5.001, Level: false}
	e, err = src.Next()
	require.NoError(t, err)
	assert.False(t, e.Level)
	assert.Greater(t, e.Timestamp, g.Timestamp)

	close(c)
	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}
