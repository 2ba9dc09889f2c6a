package appconfiguration

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/IBM/appconfiguration-go-client-sdk/api"
)

// flushQueue is implemented by the metering package queues: it hands out
// every payload awaiting delivery and takes the delivery results back.
type flushQueue interface {
	FlushPayloads() (map[string]api.FlushPayload, error)
	HandleFlushResults(successes, failures, retryables []string)
}

// meteringManager drives one store-and-forward pipeline: a recurring
// flush of its queue, POST delivery, and failure classification. The
// loop starts lazily on the first recorded evaluation and the caller of
// an evaluation never waits on a send.
type meteringManager struct {
	queue      flushQueue
	url        string
	apikey     string
	userAgent  string
	interval   time.Duration
	httpClient *http.Client
	startOnce  sync.Once
	flushStop  chan bool
	forceFlush chan bool
}

func newMeteringManager(queue flushQueue, url string, interval time.Duration, cfg *HTTPConfiguration, apikey string) *meteringManager {
	return &meteringManager{
		queue:      queue,
		url:        url,
		apikey:     apikey,
		userAgent:  cfg.UserAgent,
		interval:   interval,
		httpClient: cfg.HTTPClient,
		flushStop:  make(chan bool, 1),
		forceFlush: make(chan bool, 1),
	}
}

// Start begins the recurring flush loop. Safe to call on every record.
func (m *meteringManager) Start() {
	m.startOnce.Do(func() {
		go m.run()
	})
}

func (m *meteringManager) run() {
	ticker := time.NewTicker(m.interval)
	for {
		select {
		case <-ticker.C:
			if err := m.Flush(); err != nil {
				warnf("Error flushing metering queue: %s", err)
			}
		case <-m.forceFlush:
			if err := m.Flush(); err != nil {
				warnf("Error flushing metering queue: %s", err)
			}
		case <-m.flushStop:
			ticker.Stop()
			infof("Stopping metering flush.")
			return
		}
	}
}

func (m *meteringManager) Flush() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic in Flush: %v", r)
		}
	}()

	payloads, err := m.queue.FlushPayloads()
	if err != nil {
		return err
	}
	if len(payloads) == 0 {
		return nil
	}

	successes := make([]string, 0, len(payloads))
	failures := make([]string, 0)
	retryables := make([]string, 0)
	for _, payload := range payloads {
		m.sendPayload(&payload, &successes, &failures, &retryables)
	}
	m.queue.HandleFlushResults(successes, failures, retryables)
	return nil
}

func (m *meteringManager) sendPayload(
	payload *api.FlushPayload,
	successes *[]string,
	failures *[]string,
	retryables *[]string,
) {
	req, err := http.NewRequest("POST", m.url, bytes.NewReader(payload.Body))
	if err != nil {
		errorf("Failed to create metering request: %s", err)
		*failures = append(*failures, payload.PayloadID)
		return
	}
	req.Header.Set("Authorization", m.apikey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		errorf("Failed to send metering request: %s", err)
		*failures = append(*failures, payload.PayloadID)
		return
	}

	// always ensure body is closed to avoid goroutine leak
	defer func() {
		_ = resp.Body.Close()
	}()

	responseBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		errorf("Failed to read metering response body: %v", readErr)
		*failures = append(*failures, payload.PayloadID)
		return
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		warnf("Metering send returned %d, retrying on the next flush interval.", resp.StatusCode)
		*retryables = append(*retryables, payload.PayloadID)
	case resp.StatusCode >= 400:
		errorf("Error sending metering data - Response: %s", string(responseBody))
		*failures = append(*failures, payload.PayloadID)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		*successes = append(*successes, payload.PayloadID)
	default:
		errorf("unknown status code when sending metering data %d", resp.StatusCode)
		*failures = append(*failures, payload.PayloadID)
	}
}

// Close stops the loop and performs one final best-effort flush.
func (m *meteringManager) Close() error {
	select {
	case m.flushStop <- true:
	default:
	}
	return m.Flush()
}
