package httpapi

import (
	"context"
)

// shutdownCtx is cancelled when the process begins shutting down. Handler
// work derives from both it and the request context.
var shutdownCtx = context.Background()

// SetBaseContext installs the process-level context. nil resets it.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		shutdownCtx = context.Background()
		return
	}
	shutdownCtx = ctx
}

// joinContexts derives from req (keeping its values) and is also cancelled
// when base is done. cancel must be called when the handler returns.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
