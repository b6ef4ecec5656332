package fork

import "github.com/viant/procfork/service/table"

// Errors surfaced by Fork, shared with the process table so errors.Is works
// against either name.
var (
	ErrInvalidParent     = table.ErrInvalidParent
	ErrResourceExhausted = table.ErrResourceExhausted
)
