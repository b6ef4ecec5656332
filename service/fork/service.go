// Package fork duplicates a running process into an independent child.
//
// A fork is one call observed from two execution paths. The calling goroutine
// gets Parent(child) back from Fork; a new goroutine runs the supplied Entry
// with Child() and a context bound to the child's pid. Entry is the code both
// processes resume at, so callers typically invoke it themselves with the
// parent result:
//
//	r, err := engine.Fork(ctx, process.CurrentPID(ctx), body)
//	if err != nil { ... }
//	body(ctx, r)
package fork

import (
	"context"
	"errors"
	"fmt"
	goerrors "github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"github.com/viant/procfork/model/snapshot"
	"github.com/viant/procfork/runtime/process"
	"github.com/viant/procfork/service/table"
	"github.com/viant/procfork/tracing"
	"sync"
)

// PanicExitCode is the exit code recorded for a child whose entry panicked
const PanicExitCode = 2

// Entry is the code a forked process executes from the fork point on. Its
// return value is the child's exit code.
type Entry func(ctx context.Context, r Result) int

// ExitListener is notified after a forked process has been marked exited
type ExitListener func(ctx context.Context, pid process.PID, code int)

// ForkListener is notified once the child record exists, before the child
// path starts
type ForkListener func(ctx context.Context, parent, child process.PID)

// Service is the fork engine
type Service struct {
	table     *table.Table
	logger    *logrus.Logger
	listeners []ExitListener
	forked    []ForkListener
	children  sync.WaitGroup
}

// New creates a fork engine over tbl
func New(tbl *table.Table, options ...Option) *Service {
	s := &Service{
		table:  tbl,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Fork duplicates parent and starts the child path. The child record is
// allocated and queryable before either path observes its result. On error
// no record is created, the parent is left untouched and the zero Result,
// which is neither parent nor child, is returned.
func (s *Service) Fork(ctx context.Context, parent process.PID, entry Entry) (result Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "fork.Fork", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithPID("process.parent_pid", uint32(parent))

	if entry == nil {
		return result, fmt.Errorf("fork %d: entry cannot be nil", parent)
	}
	record, err := s.table.Lookup(parent)
	if err != nil {
		return result, fmt.Errorf("fork %d: %w", parent, ErrInvalidParent)
	}
	if !record.IsRunnable() {
		return result, fmt.Errorf("fork %d: parent %s: %w", parent, record.State, ErrInvalidParent)
	}

	var duplicate snapshot.Snapshot
	if record.Snapshot != nil {
		duplicate = record.Snapshot.Duplicate()
	}
	child, err := s.table.Allocate(parent, duplicate)
	if err != nil {
		snapshot.Release(duplicate)
		if errors.Is(err, table.ErrInvalidParent) {
			return result, fmt.Errorf("fork %d: %w", parent, err)
		}
		return result, err
	}
	span.WithPID("process.pid", uint32(child))

	for _, listener := range s.forked {
		listener(ctx, parent, child)
	}
	childCtx := process.WithPID(context.WithoutCancel(ctx), child)
	s.children.Add(1)
	go s.run(childCtx, child, entry)
	return Parent(child), nil
}

func (s *Service) run(ctx context.Context, pid process.PID, entry Entry) {
	defer s.children.Done()
	code := s.execute(ctx, pid, entry)
	if err := s.table.MarkExited(pid, code); err != nil {
		// the entry may have exited explicitly already
		s.logger.WithFields(logrus.Fields{
			"pid":  pid,
			"code": code,
		}).WithError(err).Warn("forked process exit code ignored")
		return
	}
	for _, listener := range s.listeners {
		listener(ctx, pid, code)
	}
}

func (s *Service) execute(ctx context.Context, pid process.PID, entry Entry) (code int) {
	defer func() {
		if r := recover(); r != nil {
			err := goerrors.Wrap(r, 2)
			s.logger.WithFields(logrus.Fields{
				"pid":   pid,
				"stack": string(err.Stack()),
			}).WithError(err).Error("forked process panicked")
			code = PanicExitCode
		}
	}()
	return entry(ctx, Child())
}

// WaitAll blocks until every child path started by this engine has returned
func (s *Service) WaitAll() {
	s.children.Wait()
}
