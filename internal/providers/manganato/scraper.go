package manganato

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go/v4"

	"github.com/brogergvhs/mangapdf/internal/providers"
	"github.com/brogergvhs/mangapdf/internal/ui"
)

var (
	// ErrUpstream means the remote site did not return a usable page.
	ErrUpstream = errors.New("upstream page unavailable")
	// ErrMarkup means a page was fetched but lacked the expected structure.
	ErrMarkup = errors.New("unexpected page markup")
)

// Site holds the URL templates of the remote site.
type Site struct {
	// SearchURL takes the escaped keyword, e.g. "https://manganato.com/search/story/%s".
	SearchURL string
	// ChapterURL takes the series id and chapter number.
	ChapterURL string
}

func DefaultSite() Site {
	return Site{
		SearchURL:  "https://manganato.com/search/story/%s",
		ChapterURL: "https://readmanganato.com/manga-%s/chapter-%d",
	}
}

type Scraper struct {
	client   *http.Client
	site     Site
	attempts uint
	log      *ui.Logger
}

var _ providers.Provider = (*Scraper)(nil)

// NewScraper builds a scraper. attempts bounds markup fetches; 1 disables
// retries.
func NewScraper(c *http.Client, site Site, attempts int, log *ui.Logger) *Scraper {
	if attempts < 1 {
		attempts = 1
	}

	return &Scraper{
		client:   c,
		site:     site,
		attempts: uint(attempts),
		log:      log,
	}
}

func (s *Scraper) fetchDOM(ctx context.Context, target string) (*goquery.Document, error) {
	return retry.DoWithData(
		func() (*goquery.Document, error) {
			return s.fetchOnce(ctx, target)
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.log.Debugf("retrying %s (attempt %d): %v\n", target, n+2, err)
		}),
	)
}

func (s *Scraper) fetchOnce(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, target, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w: %s: HTTP %d", ErrUpstream, target, resp.StatusCode)
		if resp.StatusCode < 500 {
			return nil, retry.Unrecoverable(err)
		}
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, target, err)
	}

	return doc, nil
}

// SearchURL builds the catalog search URL for keyword. The site expects
// words joined by underscores.
func (s *Scraper) SearchURL(keyword string) string {
	kw := strings.Join(strings.Fields(keyword), "_")
	return fmt.Sprintf(s.site.SearchURL, url.PathEscape(kw))
}

func (s *Scraper) ChapterURL(seriesID string, n int) string {
	return fmt.Sprintf(s.site.ChapterURL, seriesID, n)
}

func (s *Scraper) Search(ctx context.Context, keyword string) (providers.SearchResults, error) {
	target := s.SearchURL(keyword)
	s.log.Debugf("search %q -> %s\n", keyword, target)

	doc, err := s.fetchDOM(ctx, target)
	if err != nil {
		return nil, err
	}

	return parseSearch(doc, target), nil
}

func (s *Scraper) Info(ctx context.Context, seriesURL string) (providers.StoryInfo, error) {
	doc, err := s.fetchDOM(ctx, seriesURL)
	if err != nil {
		return providers.StoryInfo{}, err
	}

	return parseStoryInfo(doc)
}

func (s *Scraper) ChapterImages(ctx context.Context, chapterURL string) (providers.ChapterImageList, error) {
	doc, err := s.fetchDOM(ctx, chapterURL)
	if err != nil {
		return providers.ChapterImageList{}, err
	}

	images, err := parseChapterImages(doc, chapterURL)
	if err != nil {
		return providers.ChapterImageList{}, err
	}
	s.log.Debugf("%s: %d images\n", chapterURL, len(images))

	return providers.ChapterImageList{ChapterURL: chapterURL, Images: images}, nil
}
