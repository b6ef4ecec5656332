// Package acct defines the process-accounting record written when a process
// is reaped.
package acct

import (
	"github.com/viant/procfork/runtime/process"
	"time"
)

// Record summarises the life of a reaped process
type Record struct {
	PID       process.PID   `json:"pid" yaml:"pid"`
	ParentPID process.PID   `json:"parentPid" yaml:"parentPid"`
	ExitCode  int           `json:"exitCode" yaml:"exitCode"`
	Orphaned  bool          `json:"orphaned,omitempty" yaml:"orphaned,omitempty"`
	CreatedAt time.Time     `json:"createdAt" yaml:"createdAt"`
	ExitedAt  time.Time     `json:"exitedAt" yaml:"exitedAt"`
	ReapedAt  time.Time     `json:"reapedAt" yaml:"reapedAt"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
	ReapedBy  process.PID   `json:"reapedBy,omitempty" yaml:"reapedBy,omitempty"`
}

// New builds an accounting record from a reaped process
func New(p *process.Process, reapedBy process.PID, reapedAt time.Time) *Record {
	ret := &Record{
		PID:       p.PID,
		ParentPID: p.ParentPID,
		ExitCode:  p.ExitCode,
		Orphaned:  p.Orphaned,
		CreatedAt: p.CreatedAt,
		ReapedAt:  reapedAt,
		ReapedBy:  reapedBy,
	}
	if p.ExitedAt != nil {
		ret.ExitedAt = *p.ExitedAt
		ret.Elapsed = p.ExitedAt.Sub(p.CreatedAt)
	}
	return ret
}
