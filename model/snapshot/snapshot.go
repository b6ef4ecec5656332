// Package snapshot defines the execution-state payload a fork duplicates.
//
// The process table and fork engine treat a Snapshot as opaque: they only ask
// it for a duplicate. Whatever strategy the implementation uses, the duplicate
// must be observably independent of the original once Duplicate returns.
// Image is the default implementation: a paged memory image shared
// copy-on-write between duplicates, plus a register set and a resource table.
package snapshot

// Snapshot is the duplicable execution state of a process
type Snapshot interface {
	Duplicate() Snapshot
}

// Releaser is implemented by snapshots holding resources shared with their
// duplicates. Release is called once the owning process record is gone; the
// snapshot must not be used afterwards.
type Releaser interface {
	Release()
}

// Release releases s when it implements Releaser
func Release(s Snapshot) {
	if r, ok := s.(Releaser); ok {
		r.Release()
	}
}
