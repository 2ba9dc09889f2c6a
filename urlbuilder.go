package appconfiguration

import "fmt"

// URLBuilder constructs the service endpoints for one client instance.
type URLBuilder struct {
	baseServiceURL string
	guid           string
	collectionID   string
	environmentID  string
}

func newURLBuilder(cfg *HTTPConfiguration, options *Options) *URLBuilder {
	return &URLBuilder{
		baseServiceURL: cfg.BaseServiceURL,
		guid:           options.GUID,
		collectionID:   options.CollectionID,
		environmentID:  options.EnvironmentID,
	}
}

func (u *URLBuilder) ConfigURL() string {
	return fmt.Sprintf("%s/apprapp/feature/v1/instances/%s/config?action=sdkConfig&collection_id=%s&environment_id=%s",
		u.baseServiceURL, u.guid, u.collectionID, u.environmentID)
}

func (u *URLBuilder) MeteringURL() string {
	return fmt.Sprintf("%s/apprapp/events/v1/instances/%s/usage", u.baseServiceURL, u.guid)
}

func (u *URLBuilder) ExperimentAnalyticsURL() string {
	return fmt.Sprintf("%s/apprapp/metrics/v1/instances/%s/analytics", u.baseServiceURL, u.guid)
}

func (u *URLBuilder) EventSourceURL() string {
	return fmt.Sprintf("%s/apprapp/feature/v1/instances/%s/environments/%s/sse/subscribe?collection_id=%s",
		u.baseServiceURL, u.guid, u.environmentID, u.collectionID)
}
