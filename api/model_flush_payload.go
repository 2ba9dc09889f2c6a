package api

import "encoding/json"

const (
	PayloadStatusPending = "pending"
	PayloadStatusFailed  = "failed"
)

// FlushPayload is one marshaled request body awaiting delivery. Payloads
// that fail with a retryable status keep their id and are handed out
// again on the next flush cycle.
type FlushPayload struct {
	PayloadID string
	Status    string
	Body      json.RawMessage
}
