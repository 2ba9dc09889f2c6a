package metering

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/IBM/appconfiguration-go-client-sdk/api"
	"github.com/IBM/appconfiguration-go-client-sdk/util"
)

// AssignmentQueue collects experiment variation assignments. Unlike the
// usage aggregate there is no de-duplication: every assignment is its
// own record.
type AssignmentQueue struct {
	environmentID string

	mu      sync.Mutex
	usages  []api.ExperimentUsage
	tracker payloadTracker
	now     func() time.Time
}

func NewAssignmentQueue(environmentID string) *AssignmentQueue {
	return &AssignmentQueue{
		environmentID: environmentID,
		tracker:       newPayloadTracker(),
		now:           time.Now,
	}
}

func (q *AssignmentQueue) Record(usage api.ExperimentUsage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	usage.Timestamp = evaluationTimestamp(q.now())
	q.usages = append(q.usages, usage)
}

func (q *AssignmentQueue) FlushPayloads() (map[string]api.FlushPayload, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	usages := q.usages
	q.usages = nil
	if len(usages) > 0 {
		body, err := json.Marshal(api.ExperimentEventBody{
			Type:          api.EventType_ExperimentEvaluation,
			EnvironmentID: q.environmentID,
			Usages:        usages,
		})
		if err != nil {
			util.Errorf("failed to marshal experiment evaluation body: %v", err)
		} else {
			q.tracker.add(body)
		}
	}
	return q.tracker.take(), nil
}

func (q *AssignmentQueue) HandleFlushResults(successes, failures, retryables []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracker.handleResults(successes, failures, retryables)
}

// MetricQueue collects custom metric events attributed to a running
// experiment. Structurally a sibling of AssignmentQueue with its own
// aggregate and flush cycle.
type MetricQueue struct {
	environmentID string

	mu      sync.Mutex
	usages  []api.MetricUsage
	tracker payloadTracker
	now     func() time.Time
}

func NewMetricQueue(environmentID string) *MetricQueue {
	return &MetricQueue{
		environmentID: environmentID,
		tracker:       newPayloadTracker(),
		now:           time.Now,
	}
}

func (q *MetricQueue) Record(usage api.MetricUsage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	usage.Timestamp = evaluationTimestamp(q.now())
	q.usages = append(q.usages, usage)
}

func (q *MetricQueue) FlushPayloads() (map[string]api.FlushPayload, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	usages := q.usages
	q.usages = nil
	if len(usages) > 0 {
		body, err := json.Marshal(api.MetricEventBody{
			Type:          api.EventType_ExperimentMetric,
			EnvironmentID: q.environmentID,
			Usages:        usages,
		})
		if err != nil {
			util.Errorf("failed to marshal experiment metric body: %v", err)
		} else {
			q.tracker.add(body)
		}
	}
	return q.tracker.take(), nil
}

func (q *MetricQueue) HandleFlushResults(successes, failures, retryables []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracker.handleResults(successes, failures, retryables)
}
