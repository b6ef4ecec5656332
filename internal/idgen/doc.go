// Package idgen generates the opaque identifiers attached to lifecycle events
// and queue messages. Process identifiers are not generated here: pids come
// from the process table allocator.
package idgen
