package appconfiguration

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/launchdarkly/eventsource"
)

const registrationEventName = "Registration"

// SSEManager subscribes to the server-sent-event stream and triggers a
// configuration refetch whenever the service announces an update. The
// evaluation core never sees the stream, only the resulting snapshot
// swap.
type SSEManager struct {
	configManager    *ConfigurationManager
	stream           *eventsource.Stream
	eventChannel     chan eventsource.Event
	url              string
	apikey           string
	userAgent        string
	errorHandler     eventsource.StreamErrorHandler
	context          context.Context
	stopEventHandler context.CancelFunc
	cfg              *HTTPConfiguration
	Connected        atomic.Bool
}

func newSSEManager(configManager *ConfigurationManager, cfg *HTTPConfiguration, url, apikey string) *SSEManager {
	m := &SSEManager{
		configManager: configManager,
		url:           url,
		apikey:        apikey,
		userAgent:     cfg.UserAgent,
		cfg:           cfg,
		errorHandler: func(err error) eventsource.StreamErrorHandlerResult {
			debugf("SSE - Error: %v", err)
			return eventsource.StreamErrorHandlerResult{
				CloseNow: false,
			}
		},
	}
	m.Connected.Store(false)
	m.context, m.stopEventHandler = context.WithCancel(context.Background())
	return m
}

func (m *SSEManager) Start() error {
	req, err := http.NewRequest("GET", m.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", m.apikey)
	req.Header.Set("User-Agent", m.userAgent)

	stream, err := eventsource.SubscribeWithRequestAndOptions(req,
		eventsource.StreamOptionCanRetryFirstConnection(30*time.Second),
		eventsource.StreamOptionErrorHandler(m.errorHandler),
		eventsource.StreamOptionUseBackoff(30*time.Second),
		eventsource.StreamOptionUseJitter(0.25),
		eventsource.StreamOptionHTTPClient(m.cfg.HTTPClient))
	if err != nil {
		return err
	}
	m.Connected.Store(true)
	m.stream = stream
	m.eventChannel = stream.Events
	go m.receiveSSEMessages()
	return nil
}

func (m *SSEManager) receiveSSEMessages() {
	for {
		select {
		case <-m.context.Done():
			m.Connected.Store(false)
			return
		case event, ok := <-m.eventChannel:
			if !ok {
				m.Connected.Store(false)
				return
			}
			if event.Event() == registrationEventName {
				continue
			}
			debugf("SSE - Received configuration update event: %s", event.Event())
			if err := m.configManager.FetchConfiguration(); err != nil {
				warnf("Failed to refetch configuration after update event: %s", err)
			}
		}
	}
}

func (m *SSEManager) Close() {
	m.stopEventHandler()
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
}
