package reaper

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/procfork/service/event"
	"github.com/viant/procfork/service/messaging"
)

// Option configures the reaper
type Option func(*Service)

// WithQueue sets the lifecycle event queue the workers consume
func WithQueue(queue messaging.Queue[event.Lifecycle]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithReaper sets the component that performs the actual reap
func WithReaper(reaper Reaper) Option {
	return func(s *Service) {
		s.reaper = reaper
	}
}

// WithTable sets the process lookup used to check event subjects
func WithTable(table Table) Option {
	return func(s *Service) {
		s.table = table
	}
}

// WithWorkers sets the number of worker goroutines
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHandlers registers observers called with every consumed event
func WithHandlers(handlers ...Handler) Option {
	return func(s *Service) {
		s.handlers = append(s.handlers, handlers...)
	}
}

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}
