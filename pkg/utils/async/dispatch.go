package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/ctxlog"
)

// Dispatch executes a handler function asynchronously with proper context and panic recovery
//
// Parameters:
//   - ctx: Original context (values will be preserved, but cancellation won't affect the async handler)
//   - name: Task name attached to every log record of the handler
//   - handler: Function to execute asynchronously
//
// The returned channel is closed when the handler has finished, whether it
// returned an error or panicked.
func Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) <-chan struct{} {
	newCtx := newBackgroundContext(ctx, name)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				ctxlog.From(newCtx).Error("panic in async handler",
					"recover", r,
					"stack", string(debug.Stack()))
			}
		}()

		if err := handler(newCtx); err != nil {
			ctxlog.From(newCtx).Error("error in async handler", "error", err)
		}
	}()

	return done
}

// newBackgroundContext creates a new background context carrying the logger of ctx
func newBackgroundContext(ctx context.Context, name string) context.Context {
	logger := ctxlog.From(ctx).With("task", name)
	return ctxlog.With(context.Background(), logger)
}
