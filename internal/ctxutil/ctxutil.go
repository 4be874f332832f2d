package ctxutil

import (
	"context"
	"time"
)

// private keys keep values from colliding with other packages
type key int

const (
	keyActor key = iota
	keyRequestID
	keyOpName
)

// WithActorKey stores the authenticated caller's key ("staff:12", "student:40") for logs.
func WithActorKey(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, keyActor, actor)
}

func ActorKey(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyActor).(string)
	return s, ok
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestID(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyRequestID).(string)
	return s, ok
}

// WithOp names the operation for logs and error reports.
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyOpName).(string)
	return s, ok
}

var (
	DefaultDBTimeout = 5 * time.Second
)

// WithTimeout wraps context.WithTimeout; d <= 0 means no deadline.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithDBTimeout bounds a single query. A shorter parent deadline wins.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		remain := time.Until(dl)
		if remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
