package appconfiguration

import (
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/launchdarkly/eventsource"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	name string
	data string
}

func (e testEvent) Id() string    { return "" }
func (e testEvent) Event() string { return e.name }
func (e testEvent) Data() string  { return e.data }

func TestSSEManagerRefetchesOnUpdateEvent(t *testing.T) {
	manager, store := testConfigurationManager(t, testOptions())
	httpmock.RegisterResponder("GET", testConfigURL,
		httpmock.NewStringResponder(200, testConfigJSON))

	cfg := NewConfiguration(testOptions())
	sse := newSSEManager(manager, cfg, "https://example.test/sse", "test-apikey")
	events := make(chan eventsource.Event)
	sse.eventChannel = events
	go sse.receiveSSEMessages()
	defer sse.Close()

	// registration events are handshake noise and must not trigger a fetch
	events <- testEvent{name: registrationEventName}
	events <- testEvent{name: "configUpdate", data: "{}"}

	require.Eventually(t, func() bool {
		_, err := store.Current()
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestSSEManagerCloseStopsListener(t *testing.T) {
	manager, _ := testConfigurationManager(t, testOptions())
	cfg := NewConfiguration(testOptions())
	sse := newSSEManager(manager, cfg, "https://example.test/sse", "test-apikey")

	events := make(chan eventsource.Event)
	sse.eventChannel = events
	sse.Connected.Store(true)
	go sse.receiveSSEMessages()

	sse.Close()
	require.Eventually(t, func() bool {
		return !sse.Connected.Load()
	}, 2*time.Second, 10*time.Millisecond)
}
