package procfork

import (
	"errors"
	"github.com/viant/procfork/service/table"
)

var (
	// ErrNotChild is returned by Wait for a pid that is not a child of the
	// calling process
	ErrNotChild = errors.New("procfork: not a child")

	// ErrNoChildren is returned by Wait and WaitAny when the calling process
	// has no children
	ErrNoChildren = errors.New("procfork: no children")

	// ErrInvalidState is returned for lifecycle operations on a process in the
	// wrong state, e.g. a second Exit or a lost race to reap a child
	ErrInvalidState = table.ErrInvalidState

	// ErrAlreadyBooted is returned by Boot when a root process exists
	ErrAlreadyBooted = errors.New("procfork: already booted")
)
