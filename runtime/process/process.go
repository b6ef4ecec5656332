package process

import (
	"github.com/viant/procfork/model/snapshot"
	"sort"
	"time"
)

// PID identifies a process. Zero is never assigned to a live record: it is
// both "no parent" and the value the child path observes from fork.
type PID uint32

// NoPID marks the absence of a process (the root's parent).
const NoPID PID = 0

// State represents the lifecycle state of a process record
type State string

// Process state constants
const (
	StateRunnable State = "runnable"
	StateExited   State = "exited"
)

// Process represents a live (or exited but not yet reaped) process record.
// Records are owned by the process table; values handed out to callers are
// clones and carry no lock of their own.
type Process struct {
	PID       PID               `json:"pid"`
	ParentPID PID               `json:"parentPid,omitempty"`
	State     State             `json:"state"`
	ExitCode  int               `json:"exitCode"`
	Orphaned  bool              `json:"orphaned,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	ExitedAt  *time.Time        `json:"exitedAt,omitempty"`
	Snapshot  snapshot.Snapshot `json:"-"`
	Children  map[PID]struct{}  `json:"-"`
	done      chan struct{}
}

// New creates a runnable record
func New(pid, parent PID, snap snapshot.Snapshot, createdAt time.Time) *Process {
	return &Process{
		PID:       pid,
		ParentPID: parent,
		State:     StateRunnable,
		CreatedAt: createdAt,
		Snapshot:  snap,
		Children:  make(map[PID]struct{}),
		done:      make(chan struct{}),
	}
}

// IsRunnable returns true if the process has not exited
func (p *Process) IsRunnable() bool {
	return p.State == StateRunnable
}

// IsExited returns true once the process exited (zombie until reaped)
func (p *Process) IsExited() bool {
	return p.State == StateExited
}

// Exit transitions the record to exited and releases waiters. The caller must
// hold the owning table's write lock and have checked IsRunnable.
func (p *Process) Exit(code int, at time.Time) {
	p.State = StateExited
	p.ExitCode = code
	p.ExitedAt = &at
	if p.done != nil {
		close(p.done)
	}
}

// Done returns a channel closed when the process exits. Clones share the
// channel with the record they were taken from.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// HasChild returns true if pid is a child of p
func (p *Process) HasChild(pid PID) bool {
	_, ok := p.Children[pid]
	return ok
}

// ChildPIDs returns child pids in ascending order
func (p *Process) ChildPIDs() []PID {
	out := make([]PID, 0, len(p.Children))
	for pid := range p.Children {
		out = append(out, pid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone creates a copy safe to read without the table lock. The snapshot is
// shared by reference: it belongs to the executing process, not the table.
func (p *Process) Clone() *Process {
	if p == nil {
		return nil
	}
	out := &Process{
		PID:       p.PID,
		ParentPID: p.ParentPID,
		State:     p.State,
		ExitCode:  p.ExitCode,
		Orphaned:  p.Orphaned,
		CreatedAt: p.CreatedAt,
		Snapshot:  p.Snapshot,
		done:      p.done,
	}
	if p.ExitedAt != nil {
		at := *p.ExitedAt
		out.ExitedAt = &at
	}
	out.Children = make(map[PID]struct{}, len(p.Children))
	for k := range p.Children {
		out.Children[k] = struct{}{}
	}
	return out
}
