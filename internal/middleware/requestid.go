package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/finsight/reportd/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID is HTTP middleware that takes X-Request-ID from the request
// header or generates a fresh one. The ID is stored in the context for log
// correlation and echoed on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = newRequestID()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// newRequestID returns a 16-byte random hex string (32 chars).
func newRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
