// Package event defines process lifecycle notifications and a typed
// publisher over a messaging queue.
package event

import (
	"github.com/viant/procfork/internal/clock"
	"github.com/viant/procfork/internal/idgen"
	"github.com/viant/procfork/runtime/process"
	"time"
)

// Type names a lifecycle transition
type Type string

// Lifecycle event types
const (
	TypeFork   Type = "fork"
	TypeExit   Type = "exit"
	TypeReap   Type = "reap"
	TypeOrphan Type = "orphan"
)

// Context describes the process an event is about
type Context struct {
	PID       process.PID `json:"pid"`
	ParentPID process.PID `json:"parentPid,omitempty"`
	EventType Type        `json:"eventType"`
	ExitCode  int         `json:"exitCode,omitempty"`
}

// Event wraps a payload with its lifecycle context
type Event[T any] struct {
	ID        string                 `json:"id"`
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// Lifecycle is the event the runtime publishes; Data is a copy of the
// process record at the time of the transition.
type Lifecycle = Event[*process.Process]

// NewEvent creates an event
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		ID:        idgen.New(),
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}

// NewLifecycle creates a lifecycle event of the given type for record
func NewLifecycle(eventType Type, record *process.Process) *Lifecycle {
	ctx := &Context{EventType: eventType}
	if record != nil {
		ctx.PID = record.PID
		ctx.ParentPID = record.ParentPID
		ctx.ExitCode = record.ExitCode
	}
	return NewEvent[*process.Process](ctx, record)
}

// Is returns true if the event has the supplied type
func (e *Event[T]) Is(eventType Type) bool {
	return e != nil && e.Context != nil && e.Context.EventType == eventType
}
