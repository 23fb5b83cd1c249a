package identity

import "context"

type contextKey string

const actorKey contextKey = "actor_id"

// Resolver yields the identity performing the current operation. The ledger
// refuses to record anonymous appends, so resolution failure is surfaced to
// the caller instead of being papered over.
type Resolver interface {
	CurrentActor(ctx context.Context) (string, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context) (string, bool)

func (f ResolverFunc) CurrentActor(ctx context.Context) (string, bool) {
	return f(ctx)
}

// ContextWithActor attaches the authenticated actor id to the context.
// The web layer's auth middleware is expected to call this per request.
func ContextWithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey, actorID)
}

// ActorFromContext retrieves the authenticated actor id, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(actorKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ContextResolver resolves the actor from context values.
func ContextResolver() Resolver {
	return ResolverFunc(ActorFromContext)
}

// StaticResolver always resolves to a fixed actor id. Used by background
// jobs such as the snapshot scheduler.
func StaticResolver(actorID string) Resolver {
	return ResolverFunc(func(context.Context) (string, bool) {
		return actorID, actorID != ""
	})
}
