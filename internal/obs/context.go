package obs

import "context"

type routePatternKey struct{}

// WithRoutePattern records the matched chi pattern so metrics and logs can
// label requests by route instead of raw path.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the recorded route pattern, or "".
func RoutePatternFromContext(ctx context.Context) string {
	pattern, _ := ctx.Value(routePatternKey{}).(string)
	return pattern
}
