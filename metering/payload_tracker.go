package metering

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/IBM/appconfiguration-go-client-sdk/api"
)

// payloadTracker keeps the request bodies that still need delivery.
// Retryable failures stay tracked and go out again on the next flush
// cycle; successes and terminal failures are removed. Callers hold the
// owning queue's lock.
type payloadTracker struct {
	pending map[string]api.FlushPayload
}

func newPayloadTracker() payloadTracker {
	return payloadTracker{pending: make(map[string]api.FlushPayload)}
}

func (t *payloadTracker) add(body json.RawMessage) {
	id := uuid.New().String()
	t.pending[id] = api.FlushPayload{
		PayloadID: id,
		Status:    api.PayloadStatusPending,
		Body:      body,
	}
}

// take marks every tracked payload, including earlier failures, as
// in-flight and returns a copy for delivery.
func (t *payloadTracker) take() map[string]api.FlushPayload {
	out := make(map[string]api.FlushPayload, len(t.pending))
	for id, payload := range t.pending {
		payload.Status = api.PayloadStatusPending
		t.pending[id] = payload
		out[id] = payload
	}
	return out
}

func (t *payloadTracker) handleResults(successes, failures, retryables []string) {
	for _, id := range successes {
		delete(t.pending, id)
	}
	for _, id := range failures {
		delete(t.pending, id)
	}
	for _, id := range retryables {
		if payload, ok := t.pending[id]; ok {
			payload.Status = api.PayloadStatusFailed
			t.pending[id] = payload
		}
	}
}

func (t *payloadTracker) size() int {
	return len(t.pending)
}
