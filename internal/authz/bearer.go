package authz

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	obsmw "expense-auth/internal/observability/middleware"
	"expense-auth/internal/service"
)

type tokenParser interface {
	Parse(token string) (*service.Principal, error)
}

// Bearer rejects requests without a valid access token and exposes the
// token's principal to downstream handlers.
type Bearer struct {
	tokens tokenParser
}

func NewBearer(tokens tokenParser) *Bearer {
	return &Bearer{tokens: tokens}
}

func (b *Bearer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := obsmw.RequestIDFromContext(r.Context())
		traceID := obsmw.TraceIDFromContext(r.Context())
		raw := r.Header.Get("Authorization")
		if len(raw) < len("Bearer ") || !strings.EqualFold(raw[:len("Bearer ")], "bearer ") {
			unauthorized(w)
			slog.Warn("auth missing bearer", "path", r.URL.Path, "request_id", reqID, "trace_id", traceID)
			return
		}
		tokStr := strings.TrimSpace(raw[len("Bearer "):])

		principal, err := b.tokens.Parse(tokStr)
		if err != nil {
			unauthorized(w)
			slog.Warn("auth invalid token", "error", err, "request_id", reqID, "trace_id", traceID)
			return
		}

		ctx := ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "unauthorized"})
}

type principalKey struct{}

func ContextWithPrincipal(ctx context.Context, p *service.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*service.Principal, bool) {
	v, ok := ctx.Value(principalKey{}).(*service.Principal)
	return v, ok && v != nil
}
