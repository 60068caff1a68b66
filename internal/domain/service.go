package domain

import "context"

// SignalAnalyst produces a short technical read of a signal.
// Implementations must return fallback text rather than fail.
type SignalAnalyst interface {
	AnalyzeSignal(ctx context.Context, signal Signal) string
}

// SignalNotifier is told about alert-worthy signal changes
type SignalNotifier interface {
	NotifySignalChanges(ctx context.Context, changes []SignalChange)
}
