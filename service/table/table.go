// Package table owns the process table: the registry of live and zombie
// process records and the allocator of their identifiers.
//
// Every mutation runs under a single table-wide write lock; lookups share a
// read lock and receive clones, so callers never observe a record while it is
// being built or changed. Records carry no locks of their own, which keeps the
// table lock the only one acquired on these paths.
package table

import (
	"fmt"
	"github.com/viant/procfork/internal/clock"
	"github.com/viant/procfork/model/snapshot"
	"github.com/viant/procfork/runtime/process"
	"github.com/viant/procfork/service/dao"
	"github.com/viant/procfork/service/dao/criteria"
	"sort"
	"sync"
)

// Table is the authoritative registry of process records
type Table struct {
	config  Config
	mu      sync.RWMutex
	records map[process.PID]*process.Process
	pids    *pidAllocator
	root    process.PID
}

// New creates a process table
func New(options ...Option) (*Table, error) {
	t := &Table{
		config:  DefaultConfig(),
		records: make(map[process.PID]*process.Process),
	}
	for _, opt := range options {
		opt(t)
	}
	if err := t.config.Validate(); err != nil {
		return nil, err
	}
	if t.config.Capacity == 0 {
		t.config.Capacity = int(t.config.MaxPID)
	}
	t.pids = newPIDAllocator(t.config.MaxPID)
	return t, nil
}

// Config returns the effective table configuration
func (t *Table) Config() Config {
	return t.config
}

// Allocate creates a runnable record with a fresh pid. A parent other than
// NoPID must be a live runnable record; the new pid joins its child set in the
// same critical section. Nothing is inserted when an error is returned.
func (t *Table) Allocate(parent process.PID, snap snapshot.Snapshot) (process.PID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var parentRecord *process.Process
	if parent != process.NoPID {
		parentRecord = t.records[parent]
		if parentRecord == nil || !parentRecord.IsRunnable() {
			return process.NoPID, fmt.Errorf("parent %d: %w", parent, ErrInvalidParent)
		}
	}
	if len(t.records) >= t.config.Capacity {
		return process.NoPID, fmt.Errorf("capacity %d reached: %w", t.config.Capacity, ErrResourceExhausted)
	}
	pid, ok := t.pids.allocate(t.inUse)
	if !ok {
		return process.NoPID, fmt.Errorf("pid space [1, %d] in use: %w", t.config.MaxPID, ErrResourceExhausted)
	}
	t.records[pid] = process.New(pid, parent, snap, clock.Now())
	if parentRecord != nil {
		parentRecord.Children[pid] = struct{}{}
	} else if t.root == process.NoPID {
		t.root = pid
	}
	return pid, nil
}

func (t *Table) inUse(pid process.PID) bool {
	_, ok := t.records[pid]
	return ok
}

// Lookup returns a copy of the record for pid
func (t *Table) Lookup(pid process.PID) (*process.Process, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	record, ok := t.records[pid]
	if !ok {
		return nil, fmt.Errorf("process %d: %w", pid, ErrNotFound)
	}
	return record.Clone(), nil
}

// MarkExited transitions a runnable record to exited. A second call for the
// same pid is rejected so that double exits surface.
func (t *Table) MarkExited(pid process.PID, code int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	record, ok := t.records[pid]
	if !ok {
		return fmt.Errorf("exit process %d: %w: %w", pid, ErrInvalidState, ErrNotFound)
	}
	if !record.IsRunnable() {
		return fmt.Errorf("exit process %d: already %s: %w", pid, record.State, ErrInvalidState)
	}
	record.Exit(code, clock.Now())
	return nil
}

// Reap removes an exited record and returns it. The record's snapshot is
// released, so the returned copy carries an empty one. Children of the removed
// record are adopted by the root process (or left without a parent when the
// root is gone) and flagged as orphaned; the returned record lists them.
func (t *Table) Reap(pid process.PID) (*process.Process, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	record, ok := t.records[pid]
	if !ok {
		return nil, fmt.Errorf("reap process %d: %w: %w", pid, ErrInvalidState, ErrNotFound)
	}
	if !record.IsExited() {
		return nil, fmt.Errorf("reap process %d: still %s: %w", pid, record.State, ErrInvalidState)
	}
	if pid == t.root && len(record.Children) > 0 {
		return nil, fmt.Errorf("reap root process %d: %d children remain: %w", pid, len(record.Children), ErrInvalidState)
	}
	if parent, ok := t.records[record.ParentPID]; ok {
		delete(parent.Children, pid)
	}
	adopter := t.records[t.root]
	for child := range record.Children {
		childRecord, ok := t.records[child]
		if !ok {
			continue
		}
		childRecord.Orphaned = true
		if adopter != nil && adopter.PID != pid {
			childRecord.ParentPID = adopter.PID
			adopter.Children[child] = struct{}{}
		} else {
			childRecord.ParentPID = process.NoPID
		}
	}
	delete(t.records, pid)
	snapshot.Release(record.Snapshot)
	if pid == t.root {
		t.root = process.NoPID
	}
	return record.Clone(), nil
}

// List returns copies of all records ordered by pid, optionally filtered by
// a "State" parameter.
func (t *Table) List(parameters ...*dao.Parameter) []*process.Process {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*process.Process, 0, len(t.records))
	for _, record := range t.records {
		if !criteria.FilterByState(string(record.State), parameters) {
			continue
		}
		out = append(out, record.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Len returns the number of records, zombies included
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Root returns the pid of the root process or NoPID
func (t *Table) Root() process.PID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}
