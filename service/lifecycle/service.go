// Package lifecycle records what happens around process transitions: it
// publishes fork, exit, reap and orphan events and writes an accounting
// record for every reaped process.
package lifecycle

import (
	"context"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/viant/procfork/internal/clock"
	"github.com/viant/procfork/model/acct"
	"github.com/viant/procfork/runtime/process"
	"github.com/viant/procfork/service/dao"
	"github.com/viant/procfork/service/event"
	"github.com/viant/procfork/service/table"
	"github.com/viant/procfork/tracing"
	"sync/atomic"
)

// Service couples the process table with events and accounting
type Service struct {
	table      *table.Table
	accounting dao.Service[process.PID, acct.Record]
	publisher  *event.Publisher[*process.Process]
	publishing atomic.Bool
	logger     *logrus.Logger
}

// New creates a lifecycle service. A nil publisher disables events;
// otherwise publication starts enabled.
func New(tbl *table.Table, accounting dao.Service[process.PID, acct.Record], publisher *event.Publisher[*process.Process], logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ret := &Service{
		table:      tbl,
		accounting: accounting,
		publisher:  publisher,
		logger:     logger,
	}
	ret.publishing.Store(publisher != nil)
	return ret
}

// SetPublishing turns event publication on or off; events raised while off
// are dropped. It has no effect without a publisher.
func (s *Service) SetPublishing(enabled bool) {
	s.publishing.Store(enabled && s.publisher != nil)
}

// Publishing reports whether events are being published
func (s *Service) Publishing() bool {
	return s.publishing.Load()
}

// OnFork publishes a fork event for child
func (s *Service) OnFork(ctx context.Context, parent, child process.PID) {
	s.logger.WithFields(logrus.Fields{
		"pid":  child,
		"ppid": parent,
	}).Debug("process forked")
	s.publishPID(ctx, event.TypeFork, child)
}

// OnExit publishes an exit event for pid
func (s *Service) OnExit(ctx context.Context, pid process.PID, code int) {
	s.logger.WithFields(logrus.Fields{
		"pid":  pid,
		"code": code,
	}).Debug("process exited")
	s.publishPID(ctx, event.TypeExit, pid)
}

// Reap removes an exited process on behalf of reapedBy and stores its
// accounting record. When the record cannot be stored the process is still
// reaped: the record is returned together with the error.
func (s *Service) Reap(ctx context.Context, pid, reapedBy process.PID) (record *acct.Record, err error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Reap", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithPID("process.pid", uint32(pid))
	span.WithPID("process.reaped_by", uint32(reapedBy))

	reaped, err := s.table.Reap(pid)
	if err != nil {
		return nil, err
	}
	record = acct.New(reaped, reapedBy, clock.Now())
	s.logger.WithFields(logrus.Fields{
		"pid":      pid,
		"code":     reaped.ExitCode,
		"reapedBy": reapedBy,
		"orphaned": reaped.Orphaned,
		"lifetime": clock.Since(reaped.CreatedAt),
	}).Debug("process reaped")

	s.publish(ctx, event.TypeReap, reaped)
	for _, child := range reaped.ChildPIDs() {
		s.publishPID(ctx, event.TypeOrphan, child)
	}
	if s.accounting == nil {
		return record, nil
	}
	if err = s.accounting.Save(ctx, record); err != nil {
		return record, fmt.Errorf("failed to save accounting record %d: %w", pid, err)
	}
	return record, nil
}

// Accounting returns the accounting record of a reaped pid
func (s *Service) Accounting(ctx context.Context, pid process.PID) (*acct.Record, error) {
	if s.accounting == nil {
		return nil, fmt.Errorf("accounting record %d: %w", pid, dao.ErrNotFound)
	}
	return s.accounting.Load(ctx, pid)
}

func (s *Service) publishPID(ctx context.Context, eventType event.Type, pid process.PID) {
	if !s.publishing.Load() {
		return
	}
	record, err := s.table.Lookup(pid)
	if err != nil {
		// already reaped, nothing left to describe
		return
	}
	s.publish(ctx, eventType, record)
}

func (s *Service) publish(ctx context.Context, eventType event.Type, record *process.Process) {
	if !s.publishing.Load() {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event.NewLifecycle(eventType, record)); err != nil {
		s.logger.WithFields(logrus.Fields{
			"pid":   record.PID,
			"event": eventType,
		}).WithError(err).Warn("failed to publish lifecycle event")
	}
}
