package middleware

import (
	"net/http"
	"strings"

	"github.com/Notifuse/mailblocks/pkg/tracing"
)

// TracingMiddleware opens a request span and tags it with the RPC method.
// Status codes are recorded by the ochttp handler.
func TracingMiddleware(next http.Handler) http.Handler {
	annotated := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if method := rpcMethod(r.URL.Path); method != "" {
			tracing.AddAttribute(ctx, "rpc.method", method)
		}
		if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
			tracing.AddAttribute(ctx, "http.request_id", requestID)
		}
		next.ServeHTTP(w, r)
	})

	return tracing.WrapHandler(annotated)
}

// rpcMethod returns "templates.export" for "/api/templates.export"
func rpcMethod(path string) string {
	method, ok := strings.CutPrefix(path, "/api/")
	if !ok || !strings.Contains(method, ".") {
		return ""
	}
	return method
}
