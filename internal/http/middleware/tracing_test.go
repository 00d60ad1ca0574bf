package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/trace"
)

func TestTracingMiddleware(t *testing.T) {
	t.Run("handler runs inside a span", func(t *testing.T) {
		var sawSpan bool
		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawSpan = trace.FromContext(r.Context()) != nil
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/editor.state?session_id=abc&token=secret", nil)
		req.Header.Set("X-Request-ID", "req-1")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, sawSpan)
	})

	t.Run("with parent span", func(t *testing.T) {
		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		ctx, span := trace.StartSpan(context.Background(), "parent-span")
		defer span.End()
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("error status is passed through", func(t *testing.T) {
		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/export.publish", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestTraceResponseWriter(t *testing.T) {
	recorder := httptest.NewRecorder()
	ctx, span := trace.StartSpan(context.Background(), "test-span")
	defer span.End()

	w := &traceResponseWriter{ResponseWriter: recorder, ctx: ctx}
	w.WriteHeader(http.StatusAccepted)
	_, err := w.Write([]byte("test"))
	require.NoError(t, err)
	w.Flush()

	assert.Equal(t, http.StatusAccepted, w.statusCode)
	assert.Equal(t, "test", recorder.Body.String())

	// httptest.ResponseRecorder cannot be hijacked
	_, _, err = w.Hijack()
	assert.Error(t, err)
}
