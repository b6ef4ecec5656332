// Package reaper hosts the workers that play the init process's part: they
// consume lifecycle events and reap exited processes that lost their parent,
// so that orphans never linger as zombies. Processes with a live parent are
// left for the parent's Wait.
package reaper
