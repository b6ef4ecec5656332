package procfork

import (
	"context"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/viant/procfork/model/acct"
	"github.com/viant/procfork/runtime/process"
	"github.com/viant/procfork/service/dao"
	acctfs "github.com/viant/procfork/service/dao/acct/fs"
	acctmemory "github.com/viant/procfork/service/dao/acct/memory"
	"github.com/viant/procfork/service/event"
	"github.com/viant/procfork/service/fork"
	"github.com/viant/procfork/service/lifecycle"
	"github.com/viant/procfork/service/messaging"
	mmemory "github.com/viant/procfork/service/messaging/memory"
	"github.com/viant/procfork/service/reaper"
	"github.com/viant/procfork/service/table"
)

// Service assembles the process table, fork engine and their supporting
// services
type Service struct {
	config       Config
	runtime      *Runtime
	logger       *logrus.Logger
	tableOptions []table.Option
	accounting   dao.Service[process.PID, acct.Record]
	queue        messaging.Queue[event.Lifecycle]
	handlers     []reaper.Handler
}

// New creates a service with the default configuration. Lifecycle events
// are published and orphans reaped only between Runtime.Start and
// Runtime.Shutdown; without Start orphans stay zombies until collected by
// the root process.
func New(options ...Option) (*Service, error) {
	return NewFromConfig(DefaultConfig(), options...)
}

// NewFromConfig creates a service from cfg; options are applied on top of it
func NewFromConfig(cfg *Config, options ...Option) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ret := &Service{config: *cfg, runtime: &Runtime{}}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if err := s.ensureBaseSetup(); err != nil {
		return err
	}
	if s.config.Tracing.Service != "" {
		WithTracing(s.config.Tracing.Service, s.config.Tracing.Version, s.config.Tracing.Output)(s)
	}

	tbl, err := table.New(append([]table.Option{table.WithConfig(s.config.Table)}, s.tableOptions...)...)
	if err != nil {
		return err
	}
	var publisher *event.Publisher[*process.Process]
	if s.queue != nil {
		publisher = event.NewPublisher[*process.Process](s.queue)
	}
	lc := lifecycle.New(tbl, s.accounting, publisher, s.logger)
	s.runtime.table = tbl
	s.runtime.lifecycle = lc
	s.runtime.logger = s.logger
	s.runtime.forker = fork.New(tbl,
		fork.WithLogger(s.logger),
		fork.WithForkListeners(lc.OnFork),
		fork.WithExitListeners(lc.OnExit))

	if !s.config.Reaper.Enabled {
		return nil
	}
	// events are published only while the reaper runs, see Runtime.Start
	lc.SetPublishing(false)
	s.runtime.reaper, err = reaper.New(
		reaper.WithConfig(s.config.Reaper.Config),
		reaper.WithQueue(s.queue),
		reaper.WithReaper(lc),
		reaper.WithTable(tbl),
		reaper.WithLogger(s.logger),
		reaper.WithHandlers(s.handlers...))
	return err
}

func (s *Service) ensureBaseSetup() error {
	if s.logger == nil {
		s.logger = logrus.New()
		if s.config.Log.Level != "" {
			level, _ := logrus.ParseLevel(s.config.Log.Level)
			s.logger.SetLevel(level)
		}
	}
	if s.accounting == nil {
		if URL := s.config.Accounting.URL; URL != "" {
			store, err := acctfs.New(context.Background(), URL)
			if err != nil {
				return fmt.Errorf("failed to create accounting store: %w", err)
			}
			s.accounting = store
		} else {
			s.accounting = acctmemory.New()
		}
	}
	if s.config.Reaper.Enabled && s.queue == nil {
		s.queue = mmemory.NewQueue[event.Lifecycle](s.config.Queue)
	}
	if !s.config.Reaper.Enabled {
		s.queue = nil
	}
	return nil
}

// Config returns the effective configuration
func (s *Service) Config() Config {
	return s.config
}

// Runtime returns the process runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}
