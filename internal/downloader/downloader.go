package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brogergvhs/mangapdf/internal/providers"
	"github.com/brogergvhs/mangapdf/internal/ui"
)

// ErrFetch marks a chapter whose pages could not all be retrieved.
var ErrFetch = errors.New("page fetch failed")

const (
	DefaultImageTimeout = 30 * time.Second

	defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9"
)

// PageExt is the extension every fetched page is stored under, whatever its
// real encoding.
const PageExt = ".jpg"

// FetchError reports where a chapter fetch stopped. Position is the 1-based
// page that failed, 0 when the chapter markup itself could not be read.
type FetchError struct {
	ChapterURL string
	Position   int
	ImageURL   string
	Status     int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Position == 0:
		return fmt.Sprintf("chapter %s: %v", e.ChapterURL, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("chapter %s: page %d: HTTP %d", e.ChapterURL, e.Position, e.Status)
	}
	return fmt.Sprintf("chapter %s: page %d: %v", e.ChapterURL, e.Position, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}

// Progress receives per-chapter download progress. A nil Progress is allowed.
type Progress interface {
	SetTotal(total int)
	Update(done, total int, bytes int64)
	MarkDone()
	MarkFailed()
}

type Options struct {
	// Headers is sent with every image request; see DefaultHeaders.
	Headers http.Header
	// Timeout bounds a single image request.
	Timeout time.Duration
	Logger  *ui.Logger
}

// DefaultHeaders is the header set the image host expects. Requests without
// a browser user agent and a matching referer are rejected.
func DefaultHeaders(userAgent, referer string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", defaultAccept)
	h.Set("Referer", referer)
	return h
}

type Downloader struct {
	client  *http.Client
	source  providers.ChapterSource
	headers http.Header
	timeout time.Duration
	log     *ui.Logger
}

func New(c *http.Client, src providers.ChapterSource, opts Options) *Downloader {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultImageTimeout
	}

	return &Downloader{
		client:  c,
		source:  src,
		headers: opts.Headers.Clone(),
		timeout: opts.Timeout,
		log:     opts.Logger,
	}
}

// ChapterFetch describes what ended up on disk for one chapter.
type ChapterFetch struct {
	ChapterURL string
	Expected   int
	Files      []string
	Bytes      int64
}

// FetchChapter resolves the chapter's page list and stores page i as
// dest/i.jpg in reader order. It stops at the first page that cannot be
// retrieved; pages written before that stay on disk and are listed in the
// returned ChapterFetch. Nothing is retried here.
func (d *Downloader) FetchChapter(ctx context.Context, chapterURL, dest string, ph Progress) (ChapterFetch, error) {
	res := ChapterFetch{ChapterURL: chapterURL}

	list, err := d.source.ChapterImages(ctx, chapterURL)
	if err != nil {
		markFailed(ph)
		return res, &FetchError{ChapterURL: chapterURL, Err: err}
	}

	res.Expected = len(list.Images)
	if ph != nil {
		ph.SetTotal(res.Expected)
	}

	for i, u := range list.Images {
		pos := i + 1
		path := filepath.Join(dest, strconv.Itoa(pos)+PageExt)

		base := res.Bytes
		progress := func(done int64) {
			if ph != nil {
				ph.Update(i, res.Expected, base+done)
			}
		}

		n, status, err := d.download(ctx, u, path, progress)
		if err != nil {
			d.log.Debugf("chapter %s stopped at page %d: %v\n", chapterURL, pos, err)
			markFailed(ph)
			return res, &FetchError{ChapterURL: chapterURL, Position: pos, ImageURL: u, Status: status, Err: err}
		}

		res.Bytes += n
		res.Files = append(res.Files, path)
		if ph != nil {
			ph.Update(pos, res.Expected, res.Bytes)
		}
	}

	if ph != nil {
		ph.MarkDone()
	}

	return res, nil
}

func markFailed(ph Progress) {
	if ph != nil {
		ph.MarkFailed()
	}
}

func (d *Downloader) download(
	ctx context.Context,
	u, output string,
	progress func(done int64),
) (int64, int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, err
	}

	for k, vs := range d.headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(output)
	if err != nil {
		return 0, 0, err
	}

	written, err := copyWithProgress(f, resp.Body, progress)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// a truncated page would only fail later during assembly
		_ = os.Remove(output)
		return 0, 0, err
	}

	return written, 0, nil
}
