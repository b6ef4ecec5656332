package fork

import (
	"github.com/sirupsen/logrus"
)

// Option configures the fork engine
type Option func(s *Service)

// WithLogger sets the logger used for child panics and exit bookkeeping
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExitListeners registers callbacks invoked after a forked process exits
func WithExitListeners(listeners ...ExitListener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, listeners...)
	}
}

// WithForkListeners registers callbacks invoked for every successful fork
func WithForkListeners(listeners ...ForkListener) Option {
	return func(s *Service) {
		s.forked = append(s.forked, listeners...)
	}
}
