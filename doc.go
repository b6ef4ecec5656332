// Package procfork provides process duplication for Go programs: a process
// table, a fork engine with dual-return semantics and identity queries that
// stay stable from the moment a process starts until it exits.
//
// Processes are goroutines bound to a pid through their context. Forking
// duplicates the caller's snapshot (a copy-on-write memory image by default),
// allocates a fresh pid and starts the child at the same entry point the
// parent resumes at:
//
//	srv, _ := procfork.New()
//	rt := srv.Runtime()
//	ctx, _ = rt.Boot(ctx, nil)
//	body := func(ctx context.Context, r fork.Result) int {
//		fmt.Printf("my pid is %d.\n", rt.CurrentPID(ctx))
//		return 0
//	}
//	r, _ := rt.Fork(ctx, body)
//	body(ctx, r)
//	child, _ := r.ChildPID()
//	code, _ := rt.Wait(ctx, child)
//
// Supporting services publish lifecycle events, reap orphans re-parented to
// the root process and keep an accounting record of every reaped process.
package procfork
