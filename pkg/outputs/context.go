package outputs

import "context"

// joinContextKey is the context key for the request's join.
type joinContextKey struct{}

// WithJoin adds a join to the context so component code can create outputs
// tied to the request that invoked it.
func WithJoin(ctx context.Context, j *Join) context.Context {
	return context.WithValue(ctx, joinContextKey{}, j)
}

// JoinFromContext retrieves the join from the context, or nil if none is
// set.
func JoinFromContext(ctx context.Context) *Join {
	if j, ok := ctx.Value(joinContextKey{}).(*Join); ok {
		return j
	}
	return nil
}
