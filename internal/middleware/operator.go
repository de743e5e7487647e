// Package middleware provides HTTP middlewares for operator authentication and logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/atinyakov/GridCaptcha/internal/auth"
)

type ctxKey string

const operatorKey ctxKey = "operator"

// OperatorAuth is a middleware that admits only authenticated CMS operators.
//
// An operator is identified either by a verified TLS client certificate, in
// which case the certificate's Common Name is the identity, or by an
// "Authorization: Bearer <jwt>" header signed with secret, in which case the
// token's email claim is the identity. The identity is stored in the request
// context for GetOperatorFromContext.
func OperatorAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator := certOperator(r)
			if operator == "" {
				header := r.Header.Get("Authorization")
				if header == "" {
					http.Error(w, "operator credentials required", http.StatusUnauthorized)
					return
				}
				scheme, raw, ok := strings.Cut(header, " ")
				if !ok || scheme != "Bearer" {
					http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
					return
				}
				claims, err := auth.ParseToken(secret, raw)
				if err != nil {
					http.Error(w, "invalid or expired token", http.StatusUnauthorized)
					return
				}
				operator = claims.Identity()
			}
			ctx := context.WithValue(r.Context(), operatorKey, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// certOperator returns the CN of a verified client certificate, if any.
// VerifiedChains is only populated when the TLS stack checked the chain
// against the configured client CAs.
func certOperator(r *http.Request) string {
	if r.TLS == nil || len(r.TLS.VerifiedChains) == 0 || len(r.TLS.PeerCertificates) == 0 {
		return ""
	}
	return r.TLS.PeerCertificates[0].Subject.CommonName
}

// GetOperatorFromContext extracts the operator identity from the request
// context. Returns an empty string if not found.
func GetOperatorFromContext(ctx context.Context) string {
	val := ctx.Value(operatorKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
