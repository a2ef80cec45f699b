package llamaparse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-summarizer/internal/core/parsing"
)

type instantTimer struct {
	ch chan time.Time
}

func (t *instantTimer) Start(time.Duration) {
	t.ch = make(chan time.Time, 1)
	t.ch <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time {
	return t.ch
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	cfg := DefaultConfig(srv.URL+"/", "test-key")
	cfg.Retry.Timer = &instantTimer{}

	client, err := NewClient(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func newPayload(t *testing.T) parsing.UploadPayload {
	t.Helper()
	p, err := parsing.NewUploadPayload("plan.pdf", []byte("%PDF-1.7 body"), "application/pdf")
	require.NoError(t, err)
	return p
}

func TestClient_SubmitSendsMultipartForm(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/parsing/upload", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "1200", r.FormValue("job_timeout_in_seconds"))
		assert.Equal(t, "1200", r.FormValue("job_timeout_extra_time_per_page_in_seconds"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "plan.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.7 body", string(content))

		_, _ = w.Write([]byte(`{"id":"job-123","status":"PENDING"}`))
	}))
	defer srv.Close()

	handle, err := newTestClient(t, srv).Submit(context.Background(), newPayload(t))

	require.NoError(t, err)
	assert.Equal(t, "job-123", handle.ID)
}

func TestClient_SubmitRetriesThenSurfacesUpstreamError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("try later"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Submit(context.Background(), newPayload(t))

	require.Error(t, err)
	var upstream *parsing.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
	assert.Equal(t, "try later", upstream.Body)
	assert.Equal(t, int32(10), calls.Load())
}

func TestClient_SubmitRecoversFromTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"job-9"}`))
	}))
	defer srv.Close()

	handle, err := newTestClient(t, srv).Submit(context.Background(), newPayload(t))

	require.NoError(t, err)
	assert.Equal(t, "job-9", handle.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_SubmitMissingIDIsProtocolError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status":"PENDING"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Submit(context.Background(), newPayload(t))

	var protoErr *parsing.ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.ErrorIs(t, err, parsing.ErrMissingJobID)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_GetStatus(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/parsing/job/job-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"job-1","status":"ERROR","error_message":"unsupported file type"}`))
	}))
	defer srv.Close()

	rec, err := newTestClient(t, srv).GetStatus(context.Background(), "job-1")

	require.NoError(t, err)
	assert.Equal(t, parsing.StatusFailed, rec.Status)
	assert.Equal(t, "ERROR", rec.RawStatus)
	assert.Equal(t, "unsupported file type", rec.Error.MustGet())
}

func TestClient_GetStatusMalformedJSONIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).GetStatus(context.Background(), "job-1")

	var protoErr *parsing.ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.Equal(t, "<html>gateway</html>", protoErr.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_FetchResult(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/parsing/job/job-1/result/raw/markdown", r.URL.Path)
		_, _ = w.Write([]byte("## Title\n\nbody"))
	}))
	defer srv.Close()

	md, err := newTestClient(t, srv).FetchResult(context.Background(), "job-1")

	require.NoError(t, err)
	assert.Equal(t, "## Title\n\nbody", md)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(t, srv)
	srv.Close()

	_, err := client.FetchResult(context.Background(), "job-1")

	var transportErr *parsing.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "fetch_result", transportErr.Op)
}

func TestClient_VerifiesCertificatesWhenConfigured(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL, "test-key")
	cfg.InsecureSkipVerify = false
	cfg.Retry.MaxAttempts = 1
	client, err := NewClient(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FetchResult(context.Background(), "job-1")

	var transportErr *parsing.TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestNewClient_ValidatesConfig(t *testing.T) {
	_, err := NewClient(DefaultConfig("", ""))
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "BaseURL")
	assert.Contains(t, err.Error(), "APIKey")

	cfg := DefaultConfig("https://example.com", "key")
	cfg.MaxConns = 0
	_, err = NewClient(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
