package gateway

import "context"

// Observer receives progress and failure notes for a single operation. The MCP
// server forwards them to the calling client as log notifications.
type Observer interface {
	Info(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

type observerKey struct{}

// WithObserver attaches obs to ctx for the operations run under it.
func WithObserver(ctx context.Context, obs Observer) context.Context {
	if obs == nil {
		return ctx
	}
	return context.WithValue(ctx, observerKey{}, obs)
}

func observerFrom(ctx context.Context) Observer {
	if obs, ok := ctx.Value(observerKey{}).(Observer); ok {
		return obs
	}
	return nopObserver{}
}

type nopObserver struct{}

func (nopObserver) Info(context.Context, string)  {}
func (nopObserver) Error(context.Context, string) {}
