package logger

import "context"

// requestIDKey is a private key type so no other package can collide
// with or read the value except through the helpers below.
type requestIDKey struct{}

// WithRequestID stores the request ID on the context. The ID travels
// with the request through HTTP handlers and NATS message headers so
// log lines from every hop share it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID from the context, or "" when unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
