package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/promptsync/internal/core"
)

// WithRunTrigger marks runs started by r as API triggered and records the
// caller address for the run log.
func WithRunTrigger(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithTrigger(ctx, core.TriggerAPI)
	return core.ContextWithRemoteAddr(ctx, r.RemoteAddr) // already rewritten by TrustedRealIP
}
