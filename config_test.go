package procfork

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(c *Config)
		expectErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "nil pid space", mutate: func(c *Config) { c.Table.MaxPID = 0 }, expectErr: true},
		{name: "no reaper workers", mutate: func(c *Config) { c.Reaper.WorkerCount = 0 }, expectErr: true},
		{name: "reaper disabled", mutate: func(c *Config) { c.Reaper.Enabled = false; c.Reaper.WorkerCount = 0 }},
		{name: "negative retries", mutate: func(c *Config) { c.Queue.MaxRetries = -1 }, expectErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
	var nilConfig *Config
	assert.NoError(t, nilConfig.Validate())
}

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	testCases := []struct {
		name      string
		document  string
		expectErr bool
		verify    func(t *testing.T, c *Config)
	}{
		{
			name: "overrides",
			document: `table:
  maxPid: 64
  capacity: 16
reaper:
  enabled: true
  workers: 3
queue:
  buffer: 8
  retryDelay: 250ms
accounting:
  url: mem://localhost/procfork/acct
log:
  level: debug
`,
			verify: func(t *testing.T, c *Config) {
				assert.EqualValues(t, 64, c.Table.MaxPID)
				assert.Equal(t, 16, c.Table.Capacity)
				assert.Equal(t, 3, c.Reaper.WorkerCount)
				assert.Equal(t, 8, c.Queue.QueueBuffer)
				assert.Equal(t, 250*time.Millisecond, c.Queue.RetryDelay)
				assert.Equal(t, 3, c.Queue.MaxRetries)
				assert.Equal(t, "mem://localhost/procfork/acct", c.Accounting.URL)
				assert.Equal(t, "debug", c.Log.Level)
			},
		},
		{
			name:     "defaults kept",
			document: "log:\n  level: warn\n",
			verify: func(t *testing.T, c *Config) {
				assert.EqualValues(t, 32768, c.Table.MaxPID)
				assert.True(t, c.Reaper.Enabled)
				assert.Equal(t, 1, c.Reaper.WorkerCount)
			},
		},
		{name: "invalid", document: "table:\n  maxPid: 4\n  capacity: 5\n", expectErr: true},
		{name: "malformed", document: "table: [", expectErr: true},
	}
	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			URL := "mem://localhost/procfork/config/" + strings.ReplaceAll(tc.name, " ", "_") + ".yaml"
			require.NoError(t, fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader(tc.document)), i)
			cfg, err := LoadConfig(ctx, URL)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.verify(t, cfg)
		})
	}

	_, err := LoadConfig(ctx, "mem://localhost/procfork/config/missing.yaml")
	assert.Error(t, err)
}
