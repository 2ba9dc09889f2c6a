package evaluation

// ExperimentStatusRunning is the only status that activates experiment
// traffic distribution during feature evaluation.
const ExperimentStatusRunning = "RUNNING"

const (
	DistributionTypeAll    = "ALL"
	DistributionTypeNoRule = "NO_RULE"
	DistributionTypeRule   = "RULE"
)

const (
	AudienceGroupExperiment = "experiment"
	AudienceGroupControl    = "control"
)

// Group is one weighted bucket of experiment traffic.
type Group struct {
	VariationID       string `json:"variation_id"`
	RolloutPercentage int    `json:"rollout_percentage"`
}

type TrafficDistribution struct {
	Type                string  `json:"type"`
	RuleID              string  `json:"rule_id"`
	ControlGroup        Group   `json:"control_group"`
	ExperimentalGroup   []Group `json:"experimental_group"`
	TrafficReassignment bool    `json:"traffic_reassignment"`
}

// Iteration identifies one run of an experiment. IterationKey salts the
// bucketing hash so that re-iterating reshuffles assignment.
type Iteration struct {
	IterationID   string `json:"iteration_id"`
	IterationName string `json:"iteration_name,omitempty"`
	IterationKey  string `json:"iteration_key"`
}

type Variation struct {
	VariationID    string      `json:"variation_id"`
	VariationName  string      `json:"variation_name,omitempty"`
	VariationValue interface{} `json:"variation_value"`
}

type Metric struct {
	MetricID   string `json:"metric_id"`
	Primary    bool   `json:"primary"`
	MetricName string `json:"metric_name,omitempty"`
	MetricType string `json:"metric_type"`
	EventType  string `json:"event_type"`
	EventKey   string `json:"event_key"`
}

type Experiment struct {
	ExperimentID        string              `json:"experiment_id" validate:"required"`
	ExperimentName      string              `json:"experiment_name,omitempty"`
	Hypothesis          string              `json:"hypothesis,omitempty"`
	ExperimentStatus    string              `json:"experiment_status"`
	TrafficDistribution TrafficDistribution `json:"traffic_distribution_json"`
	Iteration           Iteration           `json:"iteration"`
	Variations          []Variation         `json:"variations"`
	Metrics             []Metric            `json:"metrics"`
}

func (e *Experiment) IsRunning() bool {
	return e.ExperimentStatus == ExperimentStatusRunning
}

type poolEntry struct {
	variationID string
	percentage  int
	audience    string
}

// variationPool builds the weighted pool in fixed order: every
// experimental group entry first, then the control group.
func (e *Experiment) variationPool() []poolEntry {
	pool := make([]poolEntry, 0, len(e.TrafficDistribution.ExperimentalGroup)+1)
	for _, g := range e.TrafficDistribution.ExperimentalGroup {
		pool = append(pool, poolEntry{
			variationID: g.VariationID,
			percentage:  g.RolloutPercentage,
			audience:    AudienceGroupExperiment,
		})
	}
	pool = append(pool, poolEntry{
		variationID: e.TrafficDistribution.ControlGroup.VariationID,
		percentage:  e.TrafficDistribution.ControlGroup.RolloutPercentage,
		audience:    AudienceGroupControl,
	})
	return pool
}

// decideVariation walks the pool accumulating weights and picks the
// first entry whose cumulative percentage exceeds the bucket. Weights
// should sum to 100; if they don't and no entry is hit, the selection
// fails.
func decideVariation(pool []poolEntry, bucket int) (poolEntry, bool) {
	totalPercentage := 0
	for _, entry := range pool {
		totalPercentage += entry.percentage
		if bucket < totalPercentage {
			return entry, true
		}
	}
	return poolEntry{}, false
}

func (e *Experiment) variationValue(variationID string) (interface{}, bool) {
	for i := range e.Variations {
		if e.Variations[i].VariationID == variationID {
			return e.Variations[i].VariationValue, true
		}
	}
	return nil, false
}
