package appconfiguration

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/IBM/appconfiguration-go-client-sdk/api"
	"github.com/IBM/appconfiguration-go-client-sdk/evaluation"
	"github.com/IBM/appconfiguration-go-client-sdk/metering"
)

var ErrClientClosed = errors.New("client is closed")

// Client owns every component of the SDK: the snapshot store, the
// configuration and SSE managers, and the three metering pipelines.
// There is no process-wide state; two clients run fully independently.
type Client struct {
	options       *Options
	cfg           *HTTPConfiguration
	urls          *URLBuilder
	store         *evaluation.SnapshotStore
	configManager *ConfigurationManager
	sseManager    *SSEManager

	usageQueue      *metering.UsageQueue
	assignmentQueue *metering.AssignmentQueue
	metricQueue     *metering.MetricQueue

	usageManager      *meteringManager
	assignmentManager *meteringManager
	metricManager     *meteringManager

	closed atomic.Bool
}

// NewClient validates the options, wires the components together and,
// unless OfflineMode is set, performs the initial configuration fetch
// and SSE subscription.
func NewClient(options *Options) (*Client, error) {
	if options == nil {
		return nil, fmt.Errorf("options are required")
	}
	if options.APIKey == "" {
		return nil, fmt.Errorf("apikey is required")
	}
	if options.GUID == "" {
		return nil, fmt.Errorf("guid is required")
	}
	if options.CollectionID == "" {
		return nil, fmt.Errorf("collectionId is required")
	}
	if options.EnvironmentID == "" {
		return nil, fmt.Errorf("environmentId is required")
	}
	if options.Region == "" && options.OverrideServiceURL == "" && !options.OfflineMode {
		return nil, fmt.Errorf("region is required")
	}
	options.CheckDefaults()
	if options.Logger != nil {
		SetLogger(options.Logger)
	}

	cfg := NewConfiguration(options)
	urls := newURLBuilder(cfg, options)

	c := &Client{
		options:         options,
		cfg:             cfg,
		urls:            urls,
		store:           &evaluation.SnapshotStore{},
		usageQueue:      metering.NewUsageQueue(options.CollectionID, options.EnvironmentID),
		assignmentQueue: metering.NewAssignmentQueue(options.EnvironmentID),
		metricQueue:     metering.NewMetricQueue(options.EnvironmentID),
	}
	c.usageManager = newMeteringManager(c.usageQueue, urls.MeteringURL(), options.MeteringFlushInterval, cfg, options.APIKey)
	c.assignmentManager = newMeteringManager(c.assignmentQueue, urls.ExperimentAnalyticsURL(), options.TelemetryFlushInterval, cfg, options.APIKey)
	c.metricManager = newMeteringManager(c.metricQueue, urls.ExperimentAnalyticsURL(), options.TelemetryFlushInterval, cfg, options.APIKey)
	c.configManager = newConfigurationManager(urls, cfg, options, c.store, &usageRecorder{client: c})

	if !options.OfflineMode {
		if err := c.configManager.LoadPersisted(); err != nil {
			warnf("Failed to load persisted configuration: %s", err)
		}
		if err := c.configManager.FetchConfiguration(); err != nil {
			warnf("Initial configuration fetch failed, using cached configuration if available: %s", err)
		}
		if !options.DisableRealtimeUpdates {
			c.sseManager = newSSEManager(c.configManager, cfg, urls.EventSourceURL(), options.APIKey)
			if err := c.sseManager.Start(); err != nil {
				warnf("Failed to subscribe to configuration updates: %s", err)
			}
		}
	}
	return c, nil
}

// GetFeature returns the feature flag by id from the current snapshot.
func (c *Client) GetFeature(featureID string) (*evaluation.Feature, error) {
	snapshot, err := c.store.Current()
	if err != nil {
		return nil, err
	}
	return snapshot.Feature(featureID)
}

// GetFeatures returns every feature flag in the current snapshot.
func (c *Client) GetFeatures() (map[string]*evaluation.Feature, error) {
	snapshot, err := c.store.Current()
	if err != nil {
		return nil, err
	}
	return snapshot.Features(), nil
}

// GetProperty returns the property by id from the current snapshot.
func (c *Client) GetProperty(propertyID string) (*evaluation.Property, error) {
	snapshot, err := c.store.Current()
	if err != nil {
		return nil, err
	}
	return snapshot.Property(propertyID)
}

// GetProperties returns every property in the current snapshot.
func (c *Client) GetProperties() (map[string]*evaluation.Property, error) {
	snapshot, err := c.store.Current()
	if err != nil {
		return nil, err
	}
	return snapshot.Properties(), nil
}

// EvaluateFeature resolves the feature's current value for the entity.
func (c *Client) EvaluateFeature(featureID, entityID string, entityAttributes map[string]interface{}) (interface{}, error) {
	feature, err := c.GetFeature(featureID)
	if err != nil {
		return nil, err
	}
	return feature.GetCurrentValue(entityID, entityAttributes), nil
}

// IsFeatureEnabled resolves whether the feature comes out enabled for
// the entity.
func (c *Client) IsFeatureEnabled(featureID, entityID string, entityAttributes map[string]interface{}) (bool, error) {
	feature, err := c.GetFeature(featureID)
	if err != nil {
		return false, err
	}
	return feature.GetCurrentState(entityID, entityAttributes), nil
}

// EvaluateProperty resolves the property's current value for the entity.
func (c *Client) EvaluateProperty(propertyID, entityID string, entityAttributes map[string]interface{}) (interface{}, error) {
	property, err := c.GetProperty(propertyID)
	if err != nil {
		return nil, err
	}
	return property.GetCurrentValue(entityID, entityAttributes), nil
}

// RecordMetricEvent attributes a business event to a running experiment.
// When several experiments are running the one on the lexicographically
// smallest feature id wins, so attribution is stable across calls.
func (c *Client) RecordMetricEvent(eventKey, entityID string) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if eventKey == "" {
		return fmt.Errorf("eventKey is required")
	}
	if entityID == "" {
		return fmt.Errorf("entityId is required")
	}
	snapshot, err := c.store.Current()
	if err != nil {
		return err
	}

	features := snapshot.Features()
	featureIDs := make([]string, 0, len(features))
	for id := range features {
		featureIDs = append(featureIDs, id)
	}
	sort.Strings(featureIDs)

	for _, id := range featureIDs {
		feature := features[id]
		if feature.Experiment == nil || !feature.Experiment.IsRunning() {
			continue
		}
		c.metricQueue.Record(api.MetricUsage{
			ExperimentID: feature.Experiment.ExperimentID,
			IterationID:  feature.Experiment.Iteration.IterationID,
			FeatureID:    feature.GetFeatureID(),
			EntityID:     entityID,
			EventKey:     eventKey,
		})
		c.metricManager.Start()
		return nil
	}
	debugf("No running experiment to attribute event %q to.", eventKey)
	return nil
}

// UpdateSnapshot atomically replaces the configuration from a raw
// payload. This is the snapshot-refresh entry point for hosts that
// manage their own configuration transport.
func (c *Client) UpdateSnapshot(raw []byte) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.configManager.UpdateSnapshot(raw)
}

// OnConfigurationUpdate registers a callback invoked after every
// successful snapshot swap.
func (c *Client) OnConfigurationUpdate(fn func()) {
	c.configManager.OnConfigurationUpdate(fn)
}

// Close stops the SSE subscription and the flush loops and performs one
// final best-effort flush of all three pipelines.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.sseManager != nil {
		c.sseManager.Close()
	}
	return errors.Join(
		c.usageManager.Close(),
		c.assignmentManager.Close(),
		c.metricManager.Close(),
	)
}

// usageRecorder bridges evaluation side effects into the queues and
// lazily starts the matching flush loop.
type usageRecorder struct {
	client *Client
}

func (r *usageRecorder) RecordFeatureUsage(featureID, entityID, segmentID string) {
	r.client.usageQueue.RecordFeature(featureID, entityID, segmentID)
	r.client.usageManager.Start()
}

func (r *usageRecorder) RecordPropertyUsage(propertyID, entityID, segmentID string) {
	r.client.usageQueue.RecordProperty(propertyID, entityID, segmentID)
	r.client.usageManager.Start()
}

func (r *usageRecorder) RecordExperimentAssignment(assignment evaluation.ExperimentAssignment) {
	r.client.assignmentQueue.Record(api.ExperimentUsage{
		ExperimentID:  assignment.ExperimentID,
		IterationID:   assignment.IterationID,
		FeatureID:     assignment.FeatureID,
		VariationID:   assignment.VariationID,
		EntityID:      assignment.EntityID,
		AudienceGroup: assignment.AudienceGroup,
	})
	r.client.assignmentManager.Start()
}
