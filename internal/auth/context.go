package auth

import "context"

type ctxKey string

const ContextUserKey ctxKey = "actor"

func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ContextUserKey, actor)
}

func ActorFromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(ContextUserKey).(*Actor)
	return a, ok && a != nil
}
