package procfork

import (
	"context"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/procfork/service/messaging/memory"
	"github.com/viant/procfork/service/reaper"
	"github.com/viant/procfork/service/table"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the runtime configuration. It
// can be populated from JSON or YAML; LoadConfig starts from DefaultConfig so
// a document only needs the settings it changes.
type Config struct {
	Table      table.Config     `json:"table" yaml:"table"`
	Reaper     ReaperConfig     `json:"reaper" yaml:"reaper"`
	Queue      memory.Config    `json:"queue" yaml:"queue"`
	Accounting AccountingConfig `json:"accounting" yaml:"accounting"`
	Log        LogConfig        `json:"log" yaml:"log"`
	Tracing    TracingConfig    `json:"tracing" yaml:"tracing"`
}

// ReaperConfig controls the orphan reaper
type ReaperConfig struct {
	Enabled       bool `json:"enabled" yaml:"enabled"`
	reaper.Config `json:",inline" yaml:",inline"`
}

// AccountingConfig selects the accounting store. An empty URL keeps records
// in memory; any afs URL (file://, mem://, ...) stores them as JSON files.
type AccountingConfig struct {
	URL string `json:"url" yaml:"url"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// TracingConfig enables the stdout OpenTelemetry exporter when Service is set
type TracingConfig struct {
	Service string `json:"service" yaml:"service"`
	Version string `json:"version" yaml:"version"`
	Output  string `json:"output" yaml:"output"`
}

// DefaultConfig returns a Config populated with package defaults
func DefaultConfig() *Config {
	return &Config{
		Table:  table.DefaultConfig(),
		Reaper: ReaperConfig{Enabled: true, Config: reaper.DefaultConfig()},
		Queue:  memory.DefaultConfig(),
		Log:    LogConfig{Level: logrus.InfoLevel.String()},
	}
}

// Validate returns an error describing the first invalid setting or nil
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := c.Table.Validate(); err != nil {
		return err
	}
	if c.Reaper.Enabled && c.Reaper.WorkerCount <= 0 {
		return fmt.Errorf("reaper.workers must be > 0")
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("queue.maxRetries must be >= 0")
	}
	if c.Queue.RetryDelay < 0 {
		return fmt.Errorf("queue.retryDelay must be >= 0")
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}

// LoadConfig reads a YAML configuration from any afs URL
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	cfg := DefaultConfig()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", URL, err)
	}
	return cfg, nil
}
