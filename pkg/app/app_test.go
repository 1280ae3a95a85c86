package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uartdec/pkg/app/config"
	"uartdec/pkg/capture"
	"uartdec/pkg/port"
	"uartdec/pkg/raspberry"
	"uartdec/pkg/uart"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := config.NewConfig()
	cfg.History = 2
	a, err := New(cfg)
	require.NoError(t, err)
	return a
}

func get(t *testing.T, a *App, target string) (*http.Response, []byte) {
	t.Helper()

	resp, err := a.web.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHistory(t *testing.T) {
	h := NewHistory(2)
	assert.Equal(t, []uart.Frame{}, h.Frames())

	h.Add(uart.Frame{Start: 1, Value: 'a', StopBitOK: true})
	h.Add(uart.Frame{Start: 2, Value: 'b'})
	h.Add(uart.Frame{Start: 3, Value: 'c', StopBitOK: true})

	frames := h.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, uint32('b'), frames[0].Value)
	assert.Equal(t, uint32('c'), frames[1].Value)

	total, invalid := h.Counts()
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, invalid)
}

func TestHistoryDisabled(t *testing.T) {
	h := NewHistory(0)
	h.Add(uart.Frame{Value: 'a'})

	assert.Empty(t, h.Frames())
	total, invalid := h.Counts()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, invalid)
}

func TestHandleVersion(t *testing.T) {
	resp, body := get(t, newTestApp(t), "/version")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var v map[string]string
	require.NoError(t, json.Unmarshal(body, &v))
	assert.Equal(t, VERSION, v["version"])
	assert.Equal(t, MODULE, v["description"])
	assert.Equal(t, Version(), v["about"])
}

func TestHandleHealth(t *testing.T) {
	a := newTestApp(t)
	a.handleFrame(uart.Frame{Start: 1, Value: 'x', Bits: 8})

	resp, body := get(t, a, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h struct {
		Session       string
		Gpio          int
		Frames        int
		InvalidFrames int
		MQTTConnected bool
	}
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, a.Session(), h.Session)
	assert.Equal(t, -1, h.Gpio)
	assert.Equal(t, 1, h.Frames)
	assert.Equal(t, 1, h.InvalidFrames)
	assert.False(t, h.MQTTConnected)
}

func TestHandleFrames(t *testing.T) {
	a := newTestApp(t)
	a.handleFrame(uart.Frame{Start: 0.5, Value: 'A', Bits: 8, StopBitOK: true, Text: "A"})
	a.handleFrame(uart.Frame{Start: 0.6, Value: 'B', Bits: 8, Text: "B"})

	type result struct {
		Session string       `json:"session"`
		Total   int          `json:"total"`
		Invalid int          `json:"invalid"`
		Frames  []uart.Frame `json:"frames"`
	}

	_, body := get(t, a, "/frames")
	var all result
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Equal(t, a.Session(), all.Session)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, 1, all.Invalid)
	require.Len(t, all.Frames, 2)
	assert.Equal(t, uart.Frame{Start: 0.5, Value: 'A', Bits: 8, StopBitOK: true, Text: "A"}, all.Frames[0])

	_, body = get(t, a, "/frames?valid=true")
	var valid result
	require.NoError(t, json.Unmarshal(body, &valid))
	require.Len(t, valid.Frames, 1)
	assert.Equal(t, uint32('A'), valid.Frames[0].Value)
	assert.Equal(t, 2, valid.Total)
}

func TestHandleDecode(t *testing.T) {
	events, err := uart.Encode([]uint32{'h', 'i'}, uart.NewConfig(9600), 0.001, 2)
	require.NoError(t, err)
	events = append([]port.Event{{Timestamp: 0, Level: true}}, events...)

	var export bytes.Buffer
	require.NoError(t, capture.WriteEvents(&export, "UART_TX", events, 6))

	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/decode?channel=UART_TX&baud=9600", &export)
	resp, err := a.web.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "2", resp.Header.Get("X-Frames"))
	assert.Equal(t, "0", resp.Header.Get("X-Invalid-Frames"))

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp(s),byte,isFrameValid,subascii", lines[0])
	assert.Equal(t, "0.001000,104,1,h", lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",105,1,i"))
}

func TestHandleDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"missing channel", "/decode?baud=9600", "Time[s], TX\n0, 1\n", http.StatusBadRequest},
		{"missing baud", "/decode?channel=TX", "Time[s], TX\n0, 1\n", http.StatusBadRequest},
		{"invalid bits", "/decode?channel=TX&baud=9600&bits=0", "Time[s], TX\n0, 1\n", http.StatusBadRequest},
		{"unknown channel", "/decode?channel=RX&baud=9600", "Time[s], TX\n0, 1\n", http.StatusBadRequest},
		{"empty body", "/decode?channel=TX&baud=9600", "", http.StatusBadRequest},
		{"unsorted", "/decode?channel=TX&baud=9600", "Time[s], TX\n0.2, 1\n0.3, 0\n0.1, 1\n", http.StatusUnprocessableEntity},
	}

	a := newTestApp(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			resp, err := a.web.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestDisabledWebservice(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Webserver.Webservices["decode"] = false
	a, err := New(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/decode?channel=TX&baud=9600", strings.NewReader(""))
	resp, err := a.web.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDecodeLine(t *testing.T) {
	events, err := uart.Encode([]uint32{'o', 'k'}, uart.NewConfig(9600), 10, 0)
	require.NoError(t, err)

	a := newTestApp(t)
	a.line = &raspberry.Line{Initial: true, C: make(chan port.Event, len(events))}
	for _, e := range events {
		a.line.C <- e
	}
	close(a.line.C)

	require.NoError(t, a.decodeLine())

	frames := a.history.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, "o", frames[0].Text)
	assert.Equal(t, "k", frames[1].Text)
	assert.InDelta(t, 10, frames[0].Start, 1e-9)
}
