package common

import (
	"context"
	"time"
)

// DefaultWriteTimeout bounds a detached write when none is configured.
const DefaultWriteTimeout = 10 * time.Second

// DetachedWrite returns a context for a single storage write that keeps the
// caller's values but not its cancellation, so a client hanging up does not
// abandon the write halfway. The write is still bounded by timeout.
func DetachedWrite(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return Detached(ctx, timeout)
}

// Detached is DetachedWrite for work shared by several callers, such as a
// coalesced read, which must not end when the caller that started it does.
func Detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
