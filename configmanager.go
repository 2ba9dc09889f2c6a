package appconfiguration

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/matryer/try"

	"github.com/IBM/appconfiguration-go-client-sdk/evaluation"
)

const (
	configFetchRetries = 3
	persistedFileName  = "appconfiguration.json"
)

type retryableStatusError struct {
	statusCode int
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("configuration fetch returned status %d", e.statusCode)
}

// ConfigurationManager fetches and parses configuration snapshots and
// swaps them into the store. It is the only writer of the snapshot; the
// evaluation path only ever reads whole generations.
type ConfigurationManager struct {
	urls       *URLBuilder
	apikey     string
	userAgent  string
	httpClient *http.Client
	store      *evaluation.SnapshotStore
	recorder   evaluation.UsageRecorder
	persistDir string

	listenerMutex sync.Mutex
	listeners     []func()
}

func newConfigurationManager(urls *URLBuilder, cfg *HTTPConfiguration, options *Options, store *evaluation.SnapshotStore, recorder evaluation.UsageRecorder) *ConfigurationManager {
	return &ConfigurationManager{
		urls:       urls,
		apikey:     options.APIKey,
		userAgent:  cfg.UserAgent,
		httpClient: cfg.HTTPClient,
		store:      store,
		recorder:   recorder,
		persistDir: options.PersistentCacheDirectory,
	}
}

// OnConfigurationUpdate registers a callback invoked after every
// successful snapshot swap.
func (c *ConfigurationManager) OnConfigurationUpdate(fn func()) {
	c.listenerMutex.Lock()
	c.listeners = append(c.listeners, fn)
	c.listenerMutex.Unlock()
}

// LoadPersisted swaps in the last good payload from disk, if any.
func (c *ConfigurationManager) LoadPersisted() error {
	if c.persistDir == "" {
		return nil
	}
	raw, err := os.ReadFile(filepath.Join(c.persistDir, persistedFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return c.updateSnapshot(raw, false)
}

// FetchConfiguration GETs the current snapshot, retrying up to 3 times
// on 429/5xx, and swaps it in.
func (c *ConfigurationManager) FetchConfiguration() error {
	var raw []byte
	err := try.Do(func(attempt int) (bool, error) {
		var fetchErr error
		raw, fetchErr = c.getConfig()
		if fetchErr != nil {
			if _, retryable := fetchErr.(*retryableStatusError); retryable && attempt < configFetchRetries {
				warnf("Retrying configuration fetch: %s", fetchErr)
				return true, fetchErr
			}
		}
		return false, fetchErr
	})
	if err != nil {
		return err
	}
	return c.UpdateSnapshot(raw)
}

// UpdateSnapshot parses a raw snapshot payload and atomically replaces
// the current generation.
func (c *ConfigurationManager) UpdateSnapshot(raw []byte) error {
	return c.updateSnapshot(raw, true)
}

func (c *ConfigurationManager) updateSnapshot(raw []byte, persist bool) error {
	payload, err := evaluation.ParseConfig(raw)
	if err != nil {
		return err
	}
	snapshot, err := evaluation.NewSnapshot(payload, c.recorder)
	if err != nil {
		return err
	}
	c.store.Swap(snapshot)
	debugf("Configuration snapshot updated.")

	if persist {
		c.persist(raw)
	}
	c.notifyListeners()
	return nil
}

func (c *ConfigurationManager) persist(raw []byte) {
	if c.persistDir == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(c.persistDir, persistedFileName), raw, 0o600); err != nil {
		warnf("Failed to persist configuration: %s", err)
	}
}

func (c *ConfigurationManager) notifyListeners() {
	c.listenerMutex.Lock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.listenerMutex.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (c *ConfigurationManager) getConfig() ([]byte, error) {
	req, err := http.NewRequest("GET", c.urls.ConfigURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apikey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &retryableStatusError{statusCode: resp.StatusCode}
	default:
		return nil, fmt.Errorf("could not fetch configuration, status %d: %s", resp.StatusCode, string(raw))
	}
}
