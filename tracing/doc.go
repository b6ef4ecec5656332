// Package tracing wraps OpenTelemetry so that fork, wait and reap can be
// traced without the rest of the code base importing the SDK directly.
package tracing
