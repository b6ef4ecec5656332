package procfork

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/procfork/model/acct"
	"github.com/viant/procfork/runtime/process"
	"github.com/viant/procfork/service/dao"
	"github.com/viant/procfork/service/event"
	"github.com/viant/procfork/service/messaging"
	"github.com/viant/procfork/service/reaper"
	"github.com/viant/procfork/service/table"
	"github.com/viant/procfork/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures a Service
type Option func(s *Service)

// WithLogger sets the logger shared by the fork engine, lifecycle and reaper
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTableOptions adds process table options applied after the configured
// table settings
func WithTableOptions(options ...table.Option) Option {
	return func(s *Service) {
		s.tableOptions = append(s.tableOptions, options...)
	}
}

// WithAccountingDAO sets the accounting record store
func WithAccountingDAO(store dao.Service[process.PID, acct.Record]) Option {
	return func(s *Service) {
		s.accounting = store
	}
}

// WithAccountingURL stores accounting records as JSON files under URL
func WithAccountingURL(URL string) Option {
	return func(s *Service) {
		s.config.Accounting.URL = URL
	}
}

// WithQueue sets the lifecycle event queue
func WithQueue(queue messaging.Queue[event.Lifecycle]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithReaperWorkers sets the number of reaper workers
func WithReaperWorkers(count int) Option {
	return func(s *Service) {
		s.config.Reaper.WorkerCount = count
	}
}

// WithoutReaper disables lifecycle events and the orphan reaper; orphans
// then stay as zombies until the root waits for them.
func WithoutReaper() Option {
	return func(s *Service) {
		s.config.Reaper.Enabled = false
	}
}

// WithEventHandlers registers observers of every lifecycle event the reaper
// consumes
func WithEventHandlers(handlers ...reaper.Handler) Option {
	return func(s *Service) {
		s.handlers = append(s.handlers, handlers...)
	}
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter. If
// outputFile is empty spans go to stdout. The first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter such as OTLP or an in-memory exporter in tests.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
