package table

import (
	"fmt"
	"github.com/viant/procfork/runtime/process"
)

// Config represents process table configuration
type Config struct {
	// MaxPID is the largest pid handed out; pids live in [1, MaxPID].
	MaxPID process.PID `json:"maxPid" yaml:"maxPid"`

	// Capacity bounds the number of records (live and zombie). Zero means
	// MaxPID.
	Capacity int `json:"capacity" yaml:"capacity"`
}

// DefaultConfig returns the default table configuration
func DefaultConfig() Config {
	return Config{
		MaxPID: 32768,
	}
}

// Validate returns an error describing invalid settings or nil
func (c Config) Validate() error {
	if c.MaxPID == process.NoPID {
		return fmt.Errorf("table.maxPid must be > 0")
	}
	if c.Capacity < 0 {
		return fmt.Errorf("table.capacity must be >= 0")
	}
	if uint64(c.Capacity) > uint64(c.MaxPID) {
		return fmt.Errorf("table.capacity (%d) must not exceed table.maxPid (%d)", c.Capacity, c.MaxPID)
	}
	return nil
}

// Option configures a Table
type Option func(t *Table)

// WithConfig sets the table configuration
func WithConfig(config Config) Option {
	return func(t *Table) {
		t.config = config
	}
}

// WithMaxPID constrains the pid space to [1, max]
func WithMaxPID(max process.PID) Option {
	return func(t *Table) {
		t.config.MaxPID = max
	}
}

// WithCapacity bounds the number of records
func WithCapacity(capacity int) Option {
	return func(t *Table) {
		t.config.Capacity = capacity
	}
}
