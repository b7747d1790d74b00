package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServer_Healthz(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_StartShutdown(t *testing.T) {
	srv := NewServer(":0")
	errCh := srv.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	// Shutdown races Start's own accept loop; either a clean shutdown or a
	// "server closed" signal on errCh is acceptable here.
	_ = srv.Shutdown(ctx)
	select {
	case <-errCh:
	default:
	}
}
