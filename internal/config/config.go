// Package config holds the settings of the foodpillory command, read from
// foodpillory.json5 and merged over Default.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"foodpillory/internal/facility"
	"foodpillory/lib/configutil"
)

const FileName = "foodpillory.json5"

// maxAttempts is the upper bound of the retries setting.
const maxAttempts = 10

type Config struct {
	SearchUrl string `json:"search_url"`
	DetailUrl string `json:"detail_url"`
	UserAgent string `json:"user_agent"`
	// duration string, e.g. "3s"
	Timeout string `json:"timeout"`
	// total attempts per request, the first one included
	Retries   int    `json:"retries"`
	RetryWait string `json:"retry_wait"`
	// fetch page 1 again after reading the page count instead of reusing it
	RefetchFirstPage bool   `json:"refetch_first_page"`
	DataDir          string `json:"data_dir"`
	// offenses plotted by the trend table, the most frequent ones are used
	// when empty
	TrendOffenses     []string `json:"trend_offenses"`
	StillClosedStatus string   `json:"still_closed_status"`
}

func Default() Config {
	return Config{
		SearchUrl:         "https://www.potravinynapranyri.cz/WSearch.aspx",
		DetailUrl:         "https://www.potravinynapranyri.cz/WDetail.aspx",
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/97.0.4692.99 Safari/537.36",
		Timeout:           "3s",
		Retries:           4,
		RetryWait:         "100ms",
		DataDir:           "data",
		StillClosedStatus: facility.StillClosedStatus,
	}
}

// Load reads path (and its .local override) over Default, a missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadWithDefaults(path, Default())
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	for name, raw := range map[string]string{
		"search_url": c.SearchUrl,
		"detail_url": c.DetailUrl,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s: %q is not an absolute url", name, raw)
		}
	}
	timeout, err := c.TimeoutDuration()
	if err != nil {
		return err
	}
	if timeout <= 0 {
		return fmt.Errorf("timeout: must be positive, got %s", timeout)
	}
	retryWait, err := c.RetryWaitDuration()
	if err != nil {
		return err
	}
	if retryWait < 0 {
		return fmt.Errorf("retry_wait: must not be negative, got %s", retryWait)
	}
	if c.Retries < 1 || c.Retries > maxAttempts {
		return fmt.Errorf("retries: expected 1 to %d attempts, got %d", maxAttempts, c.Retries)
	}
	if len(c.TrendOffenses) > 3 {
		return fmt.Errorf("trend_offenses: expected at most 3 labels, got %d", len(c.TrendOffenses))
	}
	return nil
}

func (c Config) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	return d, nil
}

func (c Config) RetryWaitDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.RetryWait)
	if err != nil {
		return 0, fmt.Errorf("retry_wait: %w", err)
	}
	return d, nil
}

// SnapshotPath is where a snapshot is written when no output is given.
func (c Config) SnapshotPath(snapshot facility.Snapshot) string {
	return filepath.Join(c.DataDir, string(snapshot)+".csv")
}
