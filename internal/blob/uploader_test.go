package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltcrest/swellcast/internal/api"
)

func newTestUploader() *Uploader {
	return NewUploader(5*time.Second, 5*time.Second, log.New(io.Discard))
}

func TestPutImage(t *testing.T) {
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received = body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := newTestUploader().Put(context.Background(), api.KindImage, server.URL, []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), received)
}

func TestPutVideoContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "video/mp4", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	err := newTestUploader().Put(context.Background(), api.KindVideo, server.URL, []byte("mp4"))
	assert.NoError(t, err)
}

func TestPutNon2xxIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	err := newTestUploader().Put(context.Background(), api.KindImage, server.URL, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestPutTransportErrorIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	err := newTestUploader().Put(context.Background(), api.KindImage, server.URL, []byte("x"))
	assert.Error(t, err)
}

func TestPutNoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_ = newTestUploader().Put(context.Background(), api.KindImage, server.URL, []byte("x"))
	assert.Equal(t, 1, attempts, "the uploader never retries on its own")
}
