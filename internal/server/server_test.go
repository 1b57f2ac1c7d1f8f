package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-matcher/internal/corpus"
	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/matching"
)

type fakeRecommender struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeRecommender) Recommend(_ context.Context, req matching.Request) (*matching.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, req.Text)
	if f.err != nil {
		return nil, f.err
	}
	return &matching.Result{
		Matches: []*matching.RankedJob{{
			Posting: corpus.Posting{ID: "job_1", Title: "Go Engineer", Company: "Acme"},
			Score:   0.9,
		}},
		ResumePreview: "preview...",
	}, nil
}

func upload(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/recommend", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRecommendSuccess(t *testing.T) {
	t.Parallel()

	fake := &fakeRecommender{}
	core, logs := observer.New(zap.DebugLevel)
	srv := New(Config{}, fake, zap.New(core))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, upload(t, "resume", "cv.txt", []byte("Go developer with 5 years of experience")))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "preview...", body["resumePreview"])
	matches := body["matches"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, "job_1", matches[0].(map[string]any)["id"])

	assert.Equal(t, []string{"Go developer with 5 years of experience"}, fake.texts)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))

	received := logs.FilterMessage("resume received").All()
	require.Len(t, received, 1)
	assert.Equal(t, "cv.txt", received[0].ContextMap()["file"])
	assert.NotEmpty(t, received[0].ContextMap()["request_id"])
}

func TestRecommendErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		recErr  error
		status  int
		message string
	}{
		{
			name:    "missing file",
			req:     func(t *testing.T) *http.Request { return upload(t, "other", "cv.txt", []byte("text")) },
			status:  http.StatusBadRequest,
			message: ErrNoFile.Error(),
		},
		{
			name: "not multipart",
			req: func(*testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/recommend", bytes.NewBufferString("{}"))
			},
			status:  http.StatusBadRequest,
			message: ErrNoFile.Error(),
		},
		{
			name:    "unsupported format",
			req:     func(t *testing.T) *http.Request { return upload(t, "resume", "cv.png", []byte("png")) },
			status:  http.StatusBadRequest,
			message: extraction.ErrUnsupportedFormat.Error(),
		},
		{
			name:    "matcher failure",
			req:     func(t *testing.T) *http.Request { return upload(t, "resume", "cv.txt", []byte("text")) },
			recErr:  errors.New("embedding service down"),
			status:  http.StatusInternalServerError,
			message: "Failed to process resume",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := New(Config{}, &fakeRecommender{err: tt.recErr}, nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, tt.req(t))

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.Contains(t, body["error"].(string), tt.message)
			if tt.recErr != nil {
				assert.Equal(t, tt.recErr.Error(), body["details"])
			}
		})
	}
}

func TestRecommendRateLimited(t *testing.T) {
	t.Parallel()

	srv := New(Config{RateLimit: RateLimitConfig{Requests: 2, Window: time.Minute}}, &fakeRecommender{}, nil)
	handler := srv.Handler()

	send := func(ip string) *httptest.ResponseRecorder {
		req := upload(t, "resume", "cv.txt", []byte("text"))
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("1.1.1.1").Code)
	assert.Equal(t, http.StatusOK, send("1.1.1.1").Code)

	limited := send("1.1.1.1")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "0", limited.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.Equal(t, ErrRateLimited.Error(), decode(t, limited)["error"])

	assert.Equal(t, http.StatusOK, send("2.2.2.2").Code, "other clients are not affected")
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := New(Config{}, &fakeRecommender{}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "cache")

	stats := func() embedding.CacheStats {
		return embedding.CacheStats{Size: 3, MaxSize: 200, Hits: 7, Misses: 3}
	}
	srv = New(Config{CacheStats: stats}, &fakeRecommender{}, nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cache, ok := decode(t, rec)["cache"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 7, cache["hits"])
	assert.EqualValues(t, 3, cache["misses"])
	assert.EqualValues(t, 200, cache["maxSize"])
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
	}{
		{ErrNoFile, http.StatusBadRequest},
		{fmt.Errorf("cv.png: %w", extraction.ErrUnsupportedFormat), http.StatusBadRequest},
		{extraction.ErrEmptyText, http.StatusBadRequest},
		{fmt.Errorf("big: %w", extraction.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), tt.err.Error())
	}
}
