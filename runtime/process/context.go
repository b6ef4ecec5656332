package process

import (
	"context"
	"fmt"
	"reflect"
)

// PIDKey is the context key under which the executing process id is bound
var PIDKey = KeyOf[PID]()

// WithPID returns a context bound to the supplied process id
func WithPID(ctx context.Context, pid PID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, PIDKey, pid)
}

// LookupPID returns the pid bound to ctx, if any
func LookupPID(ctx context.Context) (PID, bool) {
	if ctx == nil {
		return NoPID, false
	}
	pid, ok := ctx.Value(PIDKey).(PID)
	if !ok || pid == NoPID {
		return NoPID, false
	}
	return pid, true
}

// CurrentPID returns the identifier of the process executing with ctx.
// A context without a bound pid was never created by boot or fork, so the
// call panics instead of returning a sentinel.
func CurrentPID(ctx context.Context) PID {
	pid, ok := LookupPID(ctx)
	if !ok {
		panic(fmt.Sprintf("procfork: no process bound to execution context %v", ctx))
	}
	return pid
}

// ContextValue returns the value of the provided type from the context
func ContextValue[T any](ctx context.Context) T {
	key := KeyOf[T]()
	if value := ctx.Value(key); value != nil {
		if ret, ok := value.(T); ok {
			return ret
		}
	}
	var t T
	return t
}

// KeyOf returns the reflect.Type of the provided type
func KeyOf[T any]() reflect.Type {
	var a T
	return reflect.TypeOf(a)
}
