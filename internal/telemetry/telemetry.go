// Package telemetry records interview metrics. The OTel implementation
// exports over OTLP gRPC; Noop is used when telemetry is disabled.
package telemetry

import "context"

// Recorder receives interview lifecycle measurements.
type Recorder interface {
	SessionCreated(ctx context.Context, role string, defaultQuestion bool)
	GeneratorFallback(ctx context.Context, kind string)
	WatchdogFired(ctx context.Context, watchdog string)
	LocalModeEngaged(ctx context.Context, reason string)
	SessionFinalized(ctx context.Context, tier string, score int)
	// Close flushes pending measurements.
	Close(ctx context.Context) error
}

// Noop discards all measurements.
type Noop struct{}

func (Noop) SessionCreated(context.Context, string, bool)  {}
func (Noop) GeneratorFallback(context.Context, string)     {}
func (Noop) WatchdogFired(context.Context, string)         {}
func (Noop) LocalModeEngaged(context.Context, string)      {}
func (Noop) SessionFinalized(context.Context, string, int) {}
func (Noop) Close(context.Context) error                   { return nil }
