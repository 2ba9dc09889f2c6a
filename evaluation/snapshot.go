package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
)

var (
	ErrFeatureNotFound  = errors.New("feature flag does not exist in the current configuration")
	ErrPropertyNotFound = errors.New("property does not exist in the current configuration")
	ErrNoSnapshot       = errors.New("configuration snapshot is not available yet")
)

// use a single instance of Validate, it caches struct info
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ConfigPayload is the snapshot shape delivered by the configuration
// service on an initial fetch.
type ConfigPayload struct {
	Features   []*Feature  `json:"features" validate:"dive"`
	Properties []*Property `json:"properties" validate:"dive"`
	Segments   []*Segment  `json:"segments" validate:"dive"`
}

// pushPayload is the alternate shape used by push updates, which nest
// features and properties under an environments list.
type pushPayload struct {
	Environments []struct {
		EnvironmentID string      `json:"environment_id"`
		Features      []*Feature  `json:"features"`
		Properties    []*Property `json:"properties"`
	} `json:"environments"`
	Segments []*Segment `json:"segments"`
}

// ParseConfig decodes either snapshot payload shape.
func ParseConfig(raw []byte) (*ConfigPayload, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid configuration payload: %w", err)
	}

	if _, ok := probe["environments"]; ok {
		var push pushPayload
		if err := json.Unmarshal(raw, &push); err != nil {
			return nil, fmt.Errorf("invalid configuration payload: %w", err)
		}
		payload := &ConfigPayload{Segments: push.Segments}
		for _, env := range push.Environments {
			payload.Features = append(payload.Features, env.Features...)
			payload.Properties = append(payload.Properties, env.Properties...)
		}
		return payload, nil
	}

	var payload ConfigPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid configuration payload: %w", err)
	}
	return &payload, nil
}

// Snapshot is one fully-formed generation of the configuration: three
// id-keyed mappings built together and never mutated afterwards.
type Snapshot struct {
	features   map[string]*Feature
	properties map[string]*Property
	segments   map[string]*Segment
}

// NewSnapshot validates the payload and builds an immutable generation.
// The recorder is injected into every feature and property so that
// evaluations can report usage without any process-wide state.
func NewSnapshot(payload *ConfigPayload, recorder UsageRecorder) (*Snapshot, error) {
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	s := &Snapshot{
		features:   make(map[string]*Feature, len(payload.Features)),
		properties: make(map[string]*Property, len(payload.Properties)),
		segments:   make(map[string]*Segment, len(payload.Segments)),
	}
	for _, feature := range payload.Features {
		feature.snapshot = s
		feature.recorder = recorder
		s.features[feature.FeatureID] = feature
	}
	for _, property := range payload.Properties {
		property.snapshot = s
		property.recorder = recorder
		s.properties[property.PropertyID] = property
	}
	for _, segment := range payload.Segments {
		s.segments[segment.SegmentID] = segment
	}
	return s, nil
}

func (s *Snapshot) Feature(featureID string) (*Feature, error) {
	if feature, ok := s.features[featureID]; ok {
		return feature, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrFeatureNotFound, featureID)
}

func (s *Snapshot) Features() map[string]*Feature {
	return s.features
}

func (s *Snapshot) Property(propertyID string) (*Property, error) {
	if property, ok := s.properties[propertyID]; ok {
		return property, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPropertyNotFound, propertyID)
}

func (s *Snapshot) Properties() map[string]*Property {
	return s.properties
}

// SnapshotStore hands out the current snapshot generation. A refresh
// swaps the whole pointer, so an evaluation that captured a generation
// before the swap keeps seeing a consistent snapshot and the hot read
// path needs no lock.
type SnapshotStore struct {
	current atomic.Pointer[Snapshot]
}

func (st *SnapshotStore) Current() (*Snapshot, error) {
	if snapshot := st.current.Load(); snapshot != nil {
		return snapshot, nil
	}
	return nil, ErrNoSnapshot
}

func (st *SnapshotStore) Swap(snapshot *Snapshot) {
	st.current.Store(snapshot)
}
