package reaper

import (
	"context"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/viant/procfork/model/acct"
	"github.com/viant/procfork/runtime/process"
	"github.com/viant/procfork/service/dao"
	"github.com/viant/procfork/service/dao/criteria"
	"github.com/viant/procfork/service/event"
	"github.com/viant/procfork/service/messaging"
	"github.com/viant/procfork/service/table"
	"sync"
	"time"
)

// Config represents reaper configuration
type Config struct {
	// WorkerCount is the number of workers consuming lifecycle events
	WorkerCount int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns the default reaper configuration
func DefaultConfig() Config {
	return Config{WorkerCount: 1}
}

// Reaper reaps an exited process on behalf of another
type Reaper interface {
	Reap(ctx context.Context, pid, reapedBy process.PID) (*acct.Record, error)
}

// Table looks up process records
type Table interface {
	Lookup(pid process.PID) (*process.Process, error)
	List(parameters ...*dao.Parameter) []*process.Process
	Root() process.PID
}

// Handler observes consumed lifecycle events
type Handler func(ctx context.Context, evt *event.Lifecycle)

// Service reaps orphaned zombies
type Service struct {
	config   Config
	queue    messaging.Queue[event.Lifecycle]
	reaper   Reaper
	table    Table
	handlers []Handler
	logger   *logrus.Logger

	mu       sync.Mutex
	workers  []*worker
	workerWg sync.WaitGroup
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// New creates a reaper service
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.queue == nil {
		return nil, fmt.Errorf("lifecycle queue is required")
	}
	if s.reaper == nil {
		return nil, fmt.Errorf("reaper is required")
	}
	if s.table == nil {
		return nil, fmt.Errorf("process table is required")
	}
	if s.config.WorkerCount <= 0 {
		return nil, fmt.Errorf("reaper.workers must be > 0")
	}
	return s, nil
}

// Start launches the workers and reaps orphaned zombies left from before
// the start; a second call while running is a no-op
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.workers) > 0 {
		return nil
	}
	if err := s.Sweep(ctx); err != nil {
		s.logger.WithError(err).Warn("orphan sweep incomplete")
	}
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			service:  s,
			ctx:      workerCtx,
			cancelFn: cancel,
		}
		s.workers = append(s.workers, w)
		s.workerWg.Add(1)
		go w.run()
	}
	return nil
}

// Shutdown stops the workers and waits for them to return
func (s *Service) Shutdown() {
	s.mu.Lock()
	workers := s.workers
	s.workers = nil
	s.mu.Unlock()
	for _, w := range workers {
		w.cancelFn()
	}
	s.workerWg.Wait()
}

func (w *worker) run() {
	defer w.service.workerWg.Done()
	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		if err = w.service.handle(w.ctx, msg.T()); err != nil {
			w.service.logger.WithFields(logrus.Fields{
				"worker": w.id,
			}).WithError(err).Warn("failed to reap orphan")
			_ = msg.Nack(err)
			continue
		}
		_ = msg.Ack()
	}
}

// Sweep reaps every exited orphan currently in the table
func (s *Service) Sweep(ctx context.Context) error {
	var errs []error
	for _, record := range s.table.List(dao.NewParameter(criteria.StateParameter, string(process.StateExited))) {
		if err := s.reapOrphan(ctx, record.PID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) handle(ctx context.Context, evt *event.Lifecycle) error {
	for _, handler := range s.handlers {
		handler(ctx, evt)
	}
	if evt == nil || evt.Context == nil {
		return nil
	}
	if !evt.Is(event.TypeExit) && !evt.Is(event.TypeOrphan) {
		return nil
	}
	// the event carries a copy taken earlier; orphan status may have changed
	return s.reapOrphan(ctx, evt.Context.PID)
}

func (s *Service) reapOrphan(ctx context.Context, pid process.PID) error {
	record, err := s.table.Lookup(pid)
	if err != nil {
		return nil
	}
	if !record.Orphaned || !record.IsExited() {
		return nil
	}
	if _, err = s.reaper.Reap(ctx, pid, s.table.Root()); err != nil {
		if errors.Is(err, table.ErrInvalidState) {
			// reaped concurrently by a Wait or another worker
			return nil
		}
		return fmt.Errorf("reap orphan %d: %w", pid, err)
	}
	s.logger.WithFields(logrus.Fields{
		"pid":  pid,
		"code": record.ExitCode,
	}).Debug("orphan reaped")
	return nil
}
