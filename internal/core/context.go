package core

import "context"

type contextKey string

const (
	ctxKeyTrigger    contextKey = "run_trigger"
	ctxKeyRemoteAddr contextKey = "run_remote_addr"
)

// Run triggers recorded in history.
const (
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
	TriggerCLI      = "cli"
)

// ContextWithTrigger records what started a run.
func ContextWithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, ctxKeyTrigger, trigger)
}

// ContextWithRemoteAddr records the client address of an API-triggered run.
func ContextWithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, ctxKeyRemoteAddr, addr)
}

// TriggerFromContext returns the run trigger, defaulting to TriggerCLI.
func TriggerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTrigger).(string); ok && v != "" {
		return v
	}
	return TriggerCLI
}

// RemoteAddrFromContext returns the client address, or "".
func RemoteAddrFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRemoteAddr).(string); ok {
		return v
	}
	return ""
}
