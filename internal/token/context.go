package token

import "context"

type ctxKey struct{}

// WithAccountID returns a copy of ctx carrying the authenticated account id.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, accountID)
}

// AccountIDFrom returns the account id stored by WithAccountID.
func AccountIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
