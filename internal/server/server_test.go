package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/mangapdf/internal/pipeline"
	"github.com/brogergvhs/mangapdf/internal/providers"
	"github.com/brogergvhs/mangapdf/internal/providers/manganato"
	"github.com/brogergvhs/mangapdf/internal/ui"
)

type fakeCatalog struct {
	keyword string
	err     error
}

func (f *fakeCatalog) Search(_ context.Context, keyword string) (providers.SearchResults, error) {
	f.keyword = keyword
	if f.err != nil {
		return nil, f.err
	}
	return providers.SearchResults{
		"https://readmanganato.com/manga-ab123456": {Title: "One", Thumbnail: "https://img/1.jpg", Chapters: []string{}},
	}, nil
}

func (f *fakeCatalog) Info(_ context.Context, seriesURL string) (providers.StoryInfo, error) {
	if f.err != nil {
		return providers.StoryInfo{}, f.err
	}
	return providers.StoryInfo{Title: "One", Description: "A story.", Genres: []string{"Action"}, Chapters: 12}, nil
}

type fakeConverter struct {
	req    pipeline.Request
	ctxErr error
	err    error
}

func (f *fakeConverter) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.req = req
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{
		Link:  "https://bucket.example/docs/ab123456_1-2.pdf?X-Amz-Expires=5000",
		Key:   "ab123456_1-2.pdf",
		Pages: 30,
		Chapters: []pipeline.ChapterResult{
			{Chapter: 1, Expected: 15, Fetched: 15, Pages: 15},
			{Chapter: 2, Expected: 15, Fetched: 15, Pages: 15},
		},
	}, nil
}

func newTestServer(cat *fakeCatalog, conv *fakeConverter) (*Server, *bytes.Buffer) {
	var logs bytes.Buffer
	return New(":0", cat, conv, ui.NewJSONLogger(&logs, true)), &logs
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestSearch(t *testing.T) {
	cat := &fakeCatalog{}
	s, logs := newTestServer(cat, &fakeConverter{})

	rec, body := get(t, s.Handler(), "/s?q=one+piece")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "one piece", cat.keyword)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, body, "https://readmanganato.com/manga-ab123456")

	assert.Contains(t, logs.String(), `"path":"/s"`)
	assert.Contains(t, logs.String(), `"status":200`)
}

func TestSearch_MissingKeyword(t *testing.T) {
	s, _ := newTestServer(&fakeCatalog{}, &fakeConverter{})

	rec, body := get(t, s.Handler(), "/s")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "missing q")
}

func TestInfo(t *testing.T) {
	s, _ := newTestServer(&fakeCatalog{}, &fakeConverter{})

	rec, body := get(t, s.Handler(), "/f?s=https://readmanganato.com/manga-ab123456")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A story.", body["desc"])
	assert.Equal(t, float64(12), body["chapters"])
}

func TestInfo_UpstreamFailure(t *testing.T) {
	cat := &fakeCatalog{err: fmt.Errorf("%w: HTTP 503", manganato.ErrUpstream)}
	s, _ := newTestServer(cat, &fakeConverter{})

	rec, _ := get(t, s.Handler(), "/f?s=https://readmanganato.com/manga-ab123456")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestConvert(t *testing.T) {
	conv := &fakeConverter{}
	s, _ := newTestServer(&fakeCatalog{}, conv)

	rec, body := get(t, s.Handler(), "/c?s=https://readmanganato.com/manga-ab123456&f=1&l=2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ab123456_1-2.pdf", body["key"])
	assert.Equal(t, float64(30), body["pages"])
	assert.Contains(t, body["link"], "X-Amz-Expires=5000")

	assert.Equal(t, "https://readmanganato.com/manga-ab123456", conv.req.SeriesID)
	assert.Equal(t, 1, conv.req.Range.Min)
	assert.Equal(t, 2, conv.req.Range.Max)
	assert.NoError(t, conv.ctxErr)
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"missing series", "/c?f=1&l=2", nil, http.StatusBadRequest},
		{"non numeric", "/c?s=ab123456&f=one&l=2", nil, http.StatusBadRequest},
		{"reversed range", "/c?s=ab123456&f=5&l=2", nil, http.StatusBadRequest},
		{"zero", "/c?s=ab123456&f=0&l=2", nil, http.StatusBadRequest},
		{"storage", "/c?s=ab123456&f=1&l=2", fmt.Errorf("%w: disk full", pipeline.ErrStorage), http.StatusInternalServerError},
		{"publish", "/c?s=ab123456&f=1&l=2", fmt.Errorf("%w: denied", pipeline.ErrPublish), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(&fakeCatalog{}, &fakeConverter{err: tt.err})
			rec, body := get(t, s.Handler(), tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(&fakeCatalog{}, &fakeConverter{})
	rec, body := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestShutdownWithoutStart(t *testing.T) {
	s, _ := newTestServer(&fakeCatalog{}, &fakeConverter{})
	assert.NoError(t, s.Shutdown(context.Background()))
}
