package inventory

import "context"

type actorContextKey struct{}

// ContextWithActor stores the acting user (usually the session email) on ctx.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the acting user stored on ctx, if present.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if actor, ok := ctx.Value(actorContextKey{}).(string); ok {
		return actor
	}
	return ""
}
