// Package middleware provides HTTP middleware for the factory API.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/logger"
)

const (
	headerRequestID = "X-Request-ID"

	// maxRequestIDLen caps client-supplied IDs. The ID is echoed into
	// every log line and NATS message header for the request.
	maxRequestIDLen = 64
)

// RequestID trusts an inbound X-Request-ID when it is well formed,
// otherwise mints a fresh one. The ID lands in the request context and
// on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if !validRequestID(id) {
			id = generateID()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validRequestID accepts printable ASCII up to maxRequestIDLen bytes.
// Anything else would smuggle control characters into logs.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// generateID returns a 16-byte random hex string (32 chars).
func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
