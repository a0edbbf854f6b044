package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/mangapdf/internal/chapters"
	"github.com/brogergvhs/mangapdf/internal/document"
	"github.com/brogergvhs/mangapdf/internal/downloader"
	"github.com/brogergvhs/mangapdf/internal/providers"
	"github.com/brogergvhs/mangapdf/internal/publish"
	"github.com/brogergvhs/mangapdf/internal/util"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// site serves chapter image lists and images. Chapter n of any series has
// pages[n] images; a page listed in broken answers 404.
type site struct {
	srv    *httptest.Server
	pages  map[int][]image.Point
	broken map[string]bool
}

func newSite(t *testing.T, pages map[int][]image.Point) *site {
	t.Helper()
	s := &site{pages: pages, broken: map[string]bool{}}

	images := map[string][]byte{}
	for n, dims := range pages {
		for i, d := range dims {
			images[fmt.Sprintf("/img/%d/%d.png", n, i+1)] = pngOf(t, d.X, d.Y)
		}
	}

	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.broken[r.URL.Path] {
			http.NotFound(w, r)
			return
		}
		b, ok := images[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(b)
	}))
	t.Cleanup(s.srv.Close)

	return s
}

func (s *site) ChapterURL(seriesID string, n int) string {
	return fmt.Sprintf("%s/manga-%s/chapter-%d", s.srv.URL, seriesID, n)
}

func (s *site) ChapterImages(_ context.Context, chapterURL string) (providers.ChapterImageList, error) {
	var n int
	if _, err := fmt.Sscanf(chapterURL[strings.LastIndex(chapterURL, "/")+1:], "chapter-%d", &n); err != nil {
		return providers.ChapterImageList{}, err
	}

	list := providers.ChapterImageList{ChapterURL: chapterURL}
	for i := range s.pages[n] {
		list.Images = append(list.Images, fmt.Sprintf("%s/img/%d/%d.png", s.srv.URL, n, i+1))
	}
	return list, nil
}

func (s *site) fetcher() *downloader.Downloader {
	return downloader.New(s.srv.Client(), s, downloader.Options{
		Headers: downloader.DefaultHeaders("test-agent", s.srv.URL),
		Timeout: 5 * time.Second,
	})
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, io.ReadSeeker, int64) (string, error) {
	return "", errors.New("bucket unavailable")
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	es, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range es {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_SingleChapter(t *testing.T) {
	s := newSite(t, map[int][]image.Point{
		1: {{X: 800, Y: 1200}, {X: 1600, Y: 900}, {X: 700, Y: 1000}},
	})
	scratch := t.TempDir()
	out := t.TempDir()

	p := New(s, s.fetcher(), publish.NewLocalPublisher(out), Config{ScratchDir: scratch})
	res, err := p.Run(context.Background(), Request{SeriesID: "ab123456", Range: chapters.Range{Min: 1, Max: 1}})
	require.NoError(t, err)

	assert.Equal(t, "ab123456_1-1.pdf", res.Key)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, []document.Orientation{document.Portrait, document.Landscape, document.Portrait}, res.Orientations)
	require.Len(t, res.Chapters, 1)
	assert.True(t, res.Chapters[0].Complete())
	assert.Equal(t, 3, res.Chapters[0].Fetched)
	assert.Empty(t, res.Incomplete())

	u, err := url.Parse(res.Link)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)

	f, err := os.Open(filepath.Join(out, "ab123456_1-1.pdf"))
	require.NoError(t, err)
	defer f.Close()
	n, err := api.PageCount(f, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Empty(t, entries(t, scratch), "scratch area must be removed")
}

func TestRun_SeriesURLIsReduced(t *testing.T) {
	s := newSite(t, map[int][]image.Point{1: {{X: 20, Y: 30}}})
	out := t.TempDir()

	p := New(s, s.fetcher(), publish.NewLocalPublisher(out), Config{ScratchDir: t.TempDir()})
	res, err := p.Run(context.Background(), Request{
		SeriesID: "https://readmanganato.com/manga-ab123456/",
		Range:    chapters.Range{Min: 1, Max: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "ab123456_1-1.pdf", res.Key)
}

func TestRun_ContinuesAfterFailedChapter(t *testing.T) {
	s := newSite(t, map[int][]image.Point{
		1: {{X: 20, Y: 30}, {X: 20, Y: 30}},
		2: {{X: 30, Y: 20}, {X: 30, Y: 20}, {X: 30, Y: 20}},
		3: {{X: 20, Y: 30}},
	})
	s.broken["/img/2/2.png"] = true
	scratch := t.TempDir()

	p := New(s, s.fetcher(), publish.NewLocalPublisher(t.TempDir()), Config{ScratchDir: scratch})
	res, err := p.Run(context.Background(), Request{SeriesID: "ab123456", Range: chapters.Range{Min: 1, Max: 3}})
	require.NoError(t, err)

	// chapter 2 keeps the page fetched before the failure
	assert.Equal(t, 4, res.Pages)
	require.Len(t, res.Chapters, 3)
	assert.True(t, res.Chapters[0].Complete())
	assert.False(t, res.Chapters[1].Complete())
	assert.True(t, res.Chapters[2].Complete())

	var fe *downloader.FetchError
	require.ErrorAs(t, res.Chapters[1].Err, &fe)
	assert.Equal(t, 2, fe.Position)
	assert.Equal(t, http.StatusNotFound, fe.Status)
	assert.ErrorIs(t, res.Chapters[1].Err, downloader.ErrFetch)

	incomplete := res.Incomplete()
	require.Len(t, incomplete, 1)
	assert.Equal(t, 2, incomplete[0].Chapter)

	assert.Empty(t, entries(t, scratch))
}

func TestRun_PublishFailure(t *testing.T) {
	s := newSite(t, map[int][]image.Point{1: {{X: 20, Y: 30}}})
	scratch := t.TempDir()

	p := New(s, s.fetcher(), failingPublisher{}, Config{ScratchDir: scratch})
	res, err := p.Run(context.Background(), Request{SeriesID: "ab123456", Range: chapters.Range{Min: 1, Max: 1}})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrPublish)

	assert.Empty(t, entries(t, scratch))
}

func TestRun_StorageFailure(t *testing.T) {
	s := newSite(t, map[int][]image.Point{1: {{X: 20, Y: 30}}})
	base := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(base, []byte("x"), 0644))

	p := New(s, s.fetcher(), publish.NewLocalPublisher(t.TempDir()), Config{ScratchDir: base})
	_, err := p.Run(context.Background(), Request{SeriesID: "ab123456", Range: chapters.Range{Min: 1, Max: 1}})
	assert.ErrorIs(t, err, ErrStorage)
}

func TestRun_InvalidRequest(t *testing.T) {
	s := newSite(t, nil)
	scratch := t.TempDir()
	p := New(s, s.fetcher(), publish.NewLocalPublisher(t.TempDir()), Config{ScratchDir: scratch})

	_, err := p.Run(context.Background(), Request{SeriesID: "ab123456", Range: chapters.Range{Min: 5, Max: 2}})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = p.Run(context.Background(), Request{SeriesID: "ab123456", Range: chapters.Range{Min: 0, Max: 2}})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = p.Run(context.Background(), Request{SeriesID: "../../etc", Range: chapters.Range{Min: 1, Max: 1}})
	assert.ErrorIs(t, err, chapters.ErrInvalidSeries)

	assert.Empty(t, entries(t, scratch), "nothing may be created for a rejected request")
}

// orderedFetcher writes one page per chapter and finishes later chapters
// first, so assembly order cannot follow completion order.
type orderedFetcher struct {
	t       *testing.T
	running atomic.Int32
	peak    atomic.Int32
	mu      sync.Mutex
	order   []string
}

func (f *orderedFetcher) FetchChapter(ctx context.Context, chapterURL, dest string, _ downloader.Progress) (downloader.ChapterFetch, error) {
	cur := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		old := f.peak.Load()
		if cur <= old || f.peak.CompareAndSwap(old, cur) {
			break
		}
	}

	var n int
	_, _ = fmt.Sscanf(filepath.Base(dest), "%d", &n)
	time.Sleep(time.Duration(5-n) * 10 * time.Millisecond)

	// chapter n is 10+n pixels wide so pages can be told apart
	path := filepath.Join(dest, "1.jpg")
	if err := os.WriteFile(path, pngOf(f.t, 10+n, 40), 0644); err != nil {
		return downloader.ChapterFetch{}, err
	}

	f.mu.Lock()
	f.order = append(f.order, chapterURL)
	f.mu.Unlock()

	return downloader.ChapterFetch{ChapterURL: chapterURL, Expected: 1, Files: []string{path}}, nil
}

func TestRun_ConcurrentFetchKeepsOrder(t *testing.T) {
	s := newSite(t, nil)
	f := &orderedFetcher{t: t}
	scratch := t.TempDir()

	var progressed sync.Map
	p := New(s, f, publish.NewLocalPublisher(t.TempDir()),
		Config{ScratchDir: scratch, ChapterWorkers: 3},
		WithProgress(func(chapter int) downloader.Progress {
			progressed.Store(chapter, true)
			return nil
		}),
	)

	res, err := p.Run(context.Background(), Request{SeriesID: "ab123456", Range: chapters.Range{Min: 1, Max: 4}})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Pages)
	require.Len(t, res.Chapters, 4)
	for i, c := range res.Chapters {
		assert.Equal(t, i+1, c.Chapter)
		assert.True(t, strings.HasSuffix(c.URL, fmt.Sprintf("chapter-%d", i+1)))
	}
	assert.LessOrEqual(t, f.peak.Load(), int32(3))
	assert.Greater(t, f.peak.Load(), int32(1))

	for n := 1; n <= 4; n++ {
		_, ok := progressed.Load(n)
		assert.True(t, ok, "chapter %d has no progress sink", n)
	}

	assert.Empty(t, entries(t, scratch))
}

func TestRun_CancelledContext(t *testing.T) {
	s := newSite(t, map[int][]image.Point{1: {{X: 20, Y: 30}}})
	scratch := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(s, s.fetcher(), publish.NewLocalPublisher(t.TempDir()), Config{ScratchDir: scratch})
	_, err := p.Run(ctx, Request{SeriesID: "ab123456", Range: chapters.Range{Min: 1, Max: 2}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, entries(t, scratch))
}

// gatedFetcher writes one page and then waits for release.
type gatedFetcher struct {
	page    []byte
	started chan string
	release chan struct{}
}

func (f *gatedFetcher) FetchChapter(ctx context.Context, chapterURL, dest string, _ downloader.Progress) (downloader.ChapterFetch, error) {
	path := filepath.Join(dest, "1.png")
	if err := os.WriteFile(path, f.page, 0644); err != nil {
		return downloader.ChapterFetch{}, err
	}

	f.started <- dest
	select {
	case <-f.release:
	case <-ctx.Done():
		return downloader.ChapterFetch{}, ctx.Err()
	}

	return downloader.ChapterFetch{ChapterURL: chapterURL, Expected: 1, Files: []string{path}}, nil
}

func TestRun_SurvivesCleanupOfAnotherProcess(t *testing.T) {
	s := newSite(t, nil)
	base := t.TempDir()
	f := &gatedFetcher{page: pngOf(t, 20, 30), started: make(chan string, 1), release: make(chan struct{})}

	p := New(s, f, publish.NewLocalPublisher(t.TempDir()), Config{ScratchDir: base})

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := p.Run(context.Background(), Request{SeriesID: "ab123456", Range: chapters.Range{Min: 1, Max: 1}})
		done <- outcome{res, err}
	}()

	dest := <-f.started
	root := filepath.Dir(dest)
	assert.Contains(t, util.Scratches.Tracked(), root)

	// the other process owns its own scratch area under the same base
	other := util.NewScratchRegistry()
	otherRoot := filepath.Join(base, "ab123456-other"+util.TempSuffix)
	require.NoError(t, os.Mkdir(otherRoot, 0755))
	other.Track(otherRoot)
	assert.Equal(t, 1, other.Cleanup())

	assert.NoDirExists(t, otherRoot)
	assert.DirExists(t, dest)

	close(f.release)
	o := <-done
	require.NoError(t, o.err)
	assert.Equal(t, 1, o.res.Pages)

	assert.NotContains(t, util.Scratches.Tracked(), root)
	assert.Empty(t, entries(t, base))
}

func TestScratch_UniquePerRun(t *testing.T) {
	base := t.TempDir()
	a, err := NewScratch(base, "ab123456")
	require.NoError(t, err)
	b, err := NewScratch(base, "ab123456")
	require.NoError(t, err)

	assert.NotEqual(t, a.Root(), b.Root())
	assert.True(t, strings.HasSuffix(a.Root(), "_tmp"))

	dir, err := a.ChapterDir(7)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.Root(), "7"), dir)

	assert.Contains(t, util.Scratches.Tracked(), a.Root())

	require.NoError(t, a.Release())
	require.NoError(t, a.Release())
	require.NoError(t, b.Release())
	assert.Empty(t, entries(t, base))
	assert.NotContains(t, util.Scratches.Tracked(), a.Root())
}
