package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish(t *testing.T) {
	m := New(1)

	require.NoError(t, m.Publish("uart/frames", struct {
		Value int    `json:"value"`
		Text  string `json:"text"`
	}{65, "A"}))

	msg := <-m.C
	assert.Equal(t, "uart/frames", msg.Topic)
	assert.JSONEq(t, `{"value":65,"text":"A"}`, string(msg.Payload))
	assert.False(t, msg.Retained)
}

func TestPublishUnsupportedType(t *testing.T) {
	m := New(1)
	assert.Error(t, m.Publish("uart/frames", make(chan int)))
}

func TestServiceWithoutBroker(t *testing.T) {
	m := New(2)
	require.NoError(t, m.Connect("", "test"))
	assert.False(t, m.IsConnected())

	done := make(chan struct{})
	go func() {
		m.Service()
		close(done)
	}()

	require.NoError(t, m.Publish("uart/frames", 1))
	m.Close()
	m.Close()
	<-done

	assert.NoError(t, m.Disconnect())
}
