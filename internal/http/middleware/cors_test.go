package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSMiddleware(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	t.Run("with default origin", func(t *testing.T) {
		called = false
		handler := CORSMiddleware("")(next)

		req := httptest.NewRequest(http.MethodGet, "/api/templates.list", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "Content-Disposition, Retry-After", w.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("with custom origin", func(t *testing.T) {
		called = false
		handler := CORSMiddleware("https://designer.example.com")(next)

		req := httptest.NewRequest(http.MethodGet, "/api/templates.list", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
		assert.Equal(t, "https://designer.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("with OPTIONS request", func(t *testing.T) {
		called = false
		handler := CORSMiddleware("*")(next)

		req := httptest.NewRequest(http.MethodOptions, "/api/editor.apply", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, called, "preflight must not reach the handler")
		assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	})
}
