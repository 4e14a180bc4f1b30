package account

import "context"

type ctxKey struct{}

// WithRequester attaches the authenticated caller to the request context.
// Session state is always passed this way rather than held in package globals.
func WithRequester(ctx context.Context, r Requester) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// RequesterFrom extracts the authenticated caller, if any.
func RequesterFrom(ctx context.Context) (Requester, bool) {
	r, ok := ctx.Value(ctxKey{}).(Requester)
	return r, ok
}
