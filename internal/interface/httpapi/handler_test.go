package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-summarizer/internal/core/parsing"
	"github.com/jinford/doc-summarizer/internal/core/summary"
)

type stubSummarizer struct {
	envelope summary.Envelope
	err      error
	payload  parsing.UploadPayload
	ctxErr   error
	calls    int
}

func (s *stubSummarizer) Summarize(ctx context.Context, payload parsing.UploadPayload) (summary.Envelope, error) {
	s.calls++
	s.payload = payload
	s.ctxErr = ctx.Err()
	return s.envelope, s.err
}

func newTestRouter(s Summarizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(s, slog.New(slog.NewTextHandler(io.Discard, nil)), RouterConfig{})
}

func uploadBody(fileName, content, contentType string) string {
	return fmt.Sprintf(`{"fileName":%q,"File":{"$content-type":%q,"$content":%q}}`,
		fileName, contentType, base64.StdEncoding.EncodeToString([]byte(content)))
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestUpload_Success(t *testing.T) {
	stub := &stubSummarizer{envelope: summary.Success("a summary")}
	r := newTestRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(uploadBody("doc.pdf", "%PDF-1.4", "application/pdf")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, float64(0), body["code"])
	assert.Equal(t, "a summary", body["message"])
	assert.Contains(t, body, "data")
	assert.Nil(t, body["data"])

	assert.Equal(t, "doc.pdf", stub.payload.FileName())
	assert.Equal(t, "application/pdf", stub.payload.ContentType())
	assert.Equal(t, []byte("%PDF-1.4"), stub.payload.Content())
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestUpload_ParseFailureEnvelope(t *testing.T) {
	stub := &stubSummarizer{envelope: summary.Failure(summary.MessageParseFailed)}
	r := newTestRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(uploadBody("doc.pdf", "x", "")))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, float64(1), body["code"])
	assert.Equal(t, summary.MessageParseFailed, body["message"])
}

func TestUpload_InternalError(t *testing.T) {
	stub := &stubSummarizer{err: &parsing.UpstreamError{Op: "submit", StatusCode: 503, Body: "unavailable"}}
	r := newTestRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(uploadBody("doc.pdf", "x", "")))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, float64(1), body["code"])
	assert.Equal(t, MessageInternalError, body["message"])
	assert.Nil(t, body["data"])
}

func TestUpload_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"fileName":`},
		{name: "missing file name", body: `{"File":{"$content":"eA=="}}`},
		{name: "missing content", body: `{"fileName":"a.pdf","File":{}}`},
		{name: "invalid base64", body: `{"fileName":"a.pdf","File":{"$content":"not base64!!"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubSummarizer{}
			r := newTestRouter(stub)

			req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(tc.body))
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeEnvelope(t, w)
			assert.Equal(t, float64(1), body["code"])
			assert.True(t, strings.HasPrefix(body["message"].(string), "invalid request: "))
			assert.Zero(t, stub.calls)
		})
	}
}

func TestUpload_ClientCancelDoesNotAbortPipeline(t *testing.T) {
	stub := &stubSummarizer{envelope: summary.Success("ok")}
	r := newTestRouter(stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(uploadBody("doc.pdf", "x", ""))).WithContext(ctx)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, 1, stub.calls)
	assert.NoError(t, stub.ctxErr)
}

func TestUpload_PropagatesRequestID(t *testing.T) {
	r := newTestRouter(&stubSummarizer{envelope: summary.Success("ok")})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(uploadBody("doc.pdf", "x", "")))
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&stubSummarizer{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_CORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(&stubSummarizer{}, nil, RouterConfig{AllowedOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}
