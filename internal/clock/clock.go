// Package clock is the time source for process timestamps and event stamps.
package clock

import "time"

// NowFunc returns the current time; tests replace it to pin timestamps.
var NowFunc = time.Now

// Now returns NowFunc()
func Now() time.Time { return NowFunc() }

// Since returns the time elapsed since t according to NowFunc
func Since(t time.Time) time.Duration { return NowFunc().Sub(t) }
