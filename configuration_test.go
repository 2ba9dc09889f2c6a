package appconfiguration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckDefaults(t *testing.T) {
	options := &Options{}
	options.CheckDefaults()
	require.Equal(t, 5*time.Minute, options.MeteringFlushInterval)
	require.Equal(t, time.Minute, options.TelemetryFlushInterval)
	require.Equal(t, 10*time.Second, options.RequestTimeout)

	// sub-second intervals are rejected and reset
	options = &Options{
		MeteringFlushInterval:  100 * time.Millisecond,
		TelemetryFlushInterval: 100 * time.Millisecond,
	}
	options.CheckDefaults()
	require.Equal(t, 5*time.Minute, options.MeteringFlushInterval)
	require.Equal(t, time.Minute, options.TelemetryFlushInterval)

	// explicit values above the floor are kept
	options = &Options{
		MeteringFlushInterval:  10 * time.Second,
		TelemetryFlushInterval: 2 * time.Second,
		RequestTimeout:         time.Minute,
	}
	options.CheckDefaults()
	require.Equal(t, 10*time.Second, options.MeteringFlushInterval)
	require.Equal(t, 2*time.Second, options.TelemetryFlushInterval)
	require.Equal(t, time.Minute, options.RequestTimeout)
}

func TestNewConfigurationBaseURL(t *testing.T) {
	cfg := NewConfiguration(&Options{Region: "eu-gb"})
	require.Equal(t, "https://eu-gb.apprapp.cloud.ibm.com", cfg.BaseServiceURL)
	require.Equal(t, "appconfiguration-go-client-sdk/v"+VERSION, cfg.UserAgent)

	cfg = NewConfiguration(&Options{Region: "eu-gb", OverrideServiceURL: "http://localhost:8080"})
	require.Equal(t, "http://localhost:8080", cfg.BaseServiceURL)
}

func TestURLBuilder(t *testing.T) {
	options := testOptions()
	urls := newURLBuilder(NewConfiguration(options), options)

	require.Equal(t,
		"https://us-south.apprapp.cloud.ibm.com/apprapp/feature/v1/instances/test-guid/config?action=sdkConfig&collection_id=web-app&environment_id=dev",
		urls.ConfigURL())
	require.Equal(t,
		"https://us-south.apprapp.cloud.ibm.com/apprapp/events/v1/instances/test-guid/usage",
		urls.MeteringURL())
	require.Equal(t,
		"https://us-south.apprapp.cloud.ibm.com/apprapp/metrics/v1/instances/test-guid/analytics",
		urls.ExperimentAnalyticsURL())
	require.Equal(t,
		"https://us-south.apprapp.cloud.ibm.com/apprapp/feature/v1/instances/test-guid/environments/dev/sse/subscribe?collection_id=web-app",
		urls.EventSourceURL())
}
