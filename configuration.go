package appconfiguration

import (
	"fmt"
	"net/http"
	"time"

	"github.com/IBM/appconfiguration-go-client-sdk/util"
)

type Options struct {
	// Region, GUID and APIKey identify the service instance. Region may
	// be omitted when OverrideServiceURL is set.
	Region             string
	GUID               string
	APIKey             string
	CollectionID       string
	EnvironmentID      string
	OverrideServiceURL string

	// PersistentCacheDirectory, when set, keeps the last good
	// configuration payload on disk and loads it before the first fetch.
	PersistentCacheDirectory string

	// OfflineMode skips the remote fetch and SSE subscription entirely;
	// the snapshot must be supplied through Client.UpdateSnapshot.
	OfflineMode bool

	DisableRealtimeUpdates bool

	MeteringFlushInterval  time.Duration
	TelemetryFlushInterval time.Duration
	RequestTimeout         time.Duration

	Logger util.Logger
}

func (o *Options) CheckDefaults() {
	if o.MeteringFlushInterval <= 0 {
		o.MeteringFlushInterval = 5 * time.Minute
	} else if o.MeteringFlushInterval < time.Second {
		warnf("MeteringFlushInterval cannot be less than 1 second. Defaulting to 5 minutes.")
		o.MeteringFlushInterval = 5 * time.Minute
	}
	if o.TelemetryFlushInterval <= 0 {
		o.TelemetryFlushInterval = time.Minute
	} else if o.TelemetryFlushInterval < time.Second {
		warnf("TelemetryFlushInterval cannot be less than 1 second. Defaulting to 1 minute.")
		o.TelemetryFlushInterval = time.Minute
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
}

type HTTPConfiguration struct {
	BaseServiceURL string
	UserAgent      string
	HTTPClient     *http.Client
}

func NewConfiguration(options *Options) *HTTPConfiguration {
	base := options.OverrideServiceURL
	if base == "" {
		base = fmt.Sprintf("https://%s.apprapp.cloud.ibm.com", options.Region)
	}
	return &HTTPConfiguration{
		BaseServiceURL: base,
		UserAgent:      "appconfiguration-go-client-sdk/v" + VERSION,
		HTTPClient: &http.Client{
			// Set an explicit timeout so that we don't wait forever on a request
			Timeout: options.RequestTimeout,
		},
	}
}
