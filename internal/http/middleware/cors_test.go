package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	serve := func(origins []string, method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/blocks.registry", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		NewCORSMiddleware(origins)(next).ServeHTTP(w, req)
		return w
	}

	t.Run("any origin by default", func(t *testing.T) {
		w := serve(nil, http.MethodGet, "https://app.example.com")
		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("allowed origin is echoed", func(t *testing.T) {
		w := serve([]string{"https://app.example.com"}, http.MethodGet, "https://app.example.com")
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("other origin gets no allow header", func(t *testing.T) {
		w := serve([]string{"https://app.example.com"}, http.MethodGet, "https://evil.example.com")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusTeapot, w.Code)
	})

	t.Run("preflight short circuits", func(t *testing.T) {
		w := serve([]string{"*"}, http.MethodOptions, "https://app.example.com")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
