package metering

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/IBM/appconfiguration-go-client-sdk/api"
	"github.com/IBM/appconfiguration-go-client-sdk/util"
)

// UsageLimit caps the number of usages per request body; larger
// aggregates are split into multiple bodies.
const UsageLimit = 25

type usageMetric struct {
	count          int64
	evaluationTime string
}

// usageAggregate is id -> entityId -> segmentId -> metric.
type usageAggregate map[string]map[string]map[string]*usageMetric

func (agg usageAggregate) record(id, entityID, segmentID, evaluationTime string) {
	entities, ok := agg[id]
	if !ok {
		entities = make(map[string]map[string]*usageMetric)
		agg[id] = entities
	}
	segments, ok := entities[entityID]
	if !ok {
		segments = make(map[string]*usageMetric)
		entities[entityID] = segments
	}
	if metric, ok := segments[segmentID]; ok {
		metric.count++
		metric.evaluationTime = evaluationTime
		return
	}
	segments[segmentID] = &usageMetric{count: 1, evaluationTime: evaluationTime}
}

// UsageQueue aggregates evaluation counts by (feature-or-property,
// entity, matched-segment) between flushes. The flush step detaches the
// aggregates under the lock before any marshaling, so records added
// during an in-flight send land in the next cycle.
type UsageQueue struct {
	collectionID  string
	environmentID string

	mu             sync.Mutex
	featureUsages  usageAggregate
	propertyUsages usageAggregate
	tracker        payloadTracker
	now            func() time.Time
}

func NewUsageQueue(collectionID, environmentID string) *UsageQueue {
	return &UsageQueue{
		collectionID:   collectionID,
		environmentID:  environmentID,
		featureUsages:  make(usageAggregate),
		propertyUsages: make(usageAggregate),
		tracker:        newPayloadTracker(),
		now:            time.Now,
	}
}

func (q *UsageQueue) RecordFeature(featureID, entityID, segmentID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.featureUsages.record(featureID, entityID, segmentID, evaluationTimestamp(q.now()))
}

func (q *UsageQueue) RecordProperty(propertyID, entityID, segmentID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.propertyUsages.record(propertyID, entityID, segmentID, evaluationTimestamp(q.now()))
}

// FlushPayloads detaches the aggregates, flattens them into request
// bodies of at most UsageLimit usages each, and returns every payload
// awaiting delivery, earlier retryable failures included.
func (q *UsageQueue) FlushPayloads() (map[string]api.FlushPayload, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	featureUsages := q.featureUsages
	propertyUsages := q.propertyUsages
	q.featureUsages = make(usageAggregate)
	q.propertyUsages = make(usageAggregate)

	for _, batch := range [](struct {
		agg     usageAggregate
		feature bool
	}){{featureUsages, true}, {propertyUsages, false}} {
		usages := flattenUsages(batch.agg, batch.feature)
		for start := 0; start < len(usages); start += UsageLimit {
			end := start + UsageLimit
			if end > len(usages) {
				end = len(usages)
			}
			body, err := json.Marshal(api.MeteringBody{
				CollectionID:  q.collectionID,
				EnvironmentID: q.environmentID,
				Usages:        usages[start:end],
			})
			if err != nil {
				util.Errorf("failed to marshal metering body: %v", err)
				continue
			}
			q.tracker.add(body)
		}
	}

	return q.tracker.take(), nil
}

func (q *UsageQueue) HandleFlushResults(successes, failures, retryables []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracker.handleResults(successes, failures, retryables)
}

// PendingPayloads reports how many request bodies await delivery.
func (q *UsageQueue) PendingPayloads() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tracker.size()
}

func flattenUsages(agg usageAggregate, feature bool) []api.MeteringUsage {
	var usages []api.MeteringUsage
	for _, id := range sortedKeys(agg) {
		entities := agg[id]
		for _, entityID := range sortedEntityKeys(entities) {
			segments := entities[entityID]
			for _, segmentID := range sortedSegmentKeys(segments) {
				metric := segments[segmentID]
				usage := api.MeteringUsage{
					EntityID:       nullableID(entityID, api.DefaultEntityID),
					SegmentID:      nullableID(segmentID, api.DefaultSegmentID),
					EvaluationTime: metric.evaluationTime,
					Count:          metric.count,
				}
				id := id
				if feature {
					usage.FeatureID = &id
				} else {
					usage.PropertyID = &id
				}
				usages = append(usages, usage)
			}
		}
	}
	return usages
}

// nullableID substitutes JSON null for the sentinel default ids.
func nullableID(id, sentinel string) *string {
	if id == sentinel {
		return nil
	}
	return &id
}

func evaluationTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func sortedKeys(agg usageAggregate) []string {
	keys := make([]string, 0, len(agg))
	for k := range agg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedEntityKeys(m map[string]map[string]*usageMetric) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSegmentKeys(m map[string]*usageMetric) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
