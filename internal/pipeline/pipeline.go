// Package pipeline turns a chapter range of a series into one published PDF.
//
// A run owns a scratch area for its whole lifetime. Chapters are fetched into
// their own subdirectories, possibly several at a time, and appended to the
// document strictly in ascending chapter order, pages in natural order. A
// chapter that cannot be fetched completely does not stop the run; it is
// reported in the Result instead. Storage and publish failures are fatal.
// The scratch area is removed on every return path.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/brogergvhs/mangapdf/internal/chapters"
	"github.com/brogergvhs/mangapdf/internal/document"
	"github.com/brogergvhs/mangapdf/internal/downloader"
	"github.com/brogergvhs/mangapdf/internal/providers"
	"github.com/brogergvhs/mangapdf/internal/publish"
	"github.com/brogergvhs/mangapdf/internal/ui"
	"github.com/brogergvhs/mangapdf/internal/util"
)

// Fetcher fills a chapter directory with page images.
type Fetcher interface {
	FetchChapter(ctx context.Context, chapterURL, dest string, ph downloader.Progress) (downloader.ChapterFetch, error)
}

type Config struct {
	// ScratchDir is where per-run scratch areas are created.
	ScratchDir string
	// ChapterWorkers is how many chapters are fetched at once; 1 keeps the
	// fetches strictly sequential.
	ChapterWorkers int
	PageSizes      document.PageSizes
}

type Option func(*Pipeline)

func WithLogger(l *ui.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithProgress registers a progress sink per chapter fetch.
func WithProgress(fn func(chapter int) downloader.Progress) Option {
	return func(p *Pipeline) { p.progress = fn }
}

type Pipeline struct {
	source    providers.ChapterSource
	fetcher   Fetcher
	publisher publish.Publisher
	cfg       Config
	log       *ui.Logger
	progress  func(chapter int) downloader.Progress
}

func New(src providers.ChapterSource, f Fetcher, pub publish.Publisher, cfg Config, opts ...Option) *Pipeline {
	if cfg.ChapterWorkers < 1 {
		cfg.ChapterWorkers = 1
	}
	if cfg.PageSizes == (document.PageSizes{}) {
		cfg.PageSizes = document.A4
	}

	p := &Pipeline{
		source:    src,
		fetcher:   f,
		publisher: pub,
		cfg:       cfg,
		log:       ui.NopLogger(),
	}
	for _, o := range opts {
		o(p)
	}

	return p
}

// Run assembles and publishes chapters req.Range of req.SeriesID and returns
// the link to the document.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *Result, err error) {
	if _, err := chapters.NewRange(req.Range.Min, req.Range.Max); err != nil {
		return nil, err
	}
	id, err := chapters.SeriesID(req.SeriesID)
	if err != nil {
		return nil, err
	}
	req.SeriesID = id

	scratch, err := NewScratch(p.cfg.ScratchDir, req.SeriesID)
	if err != nil {
		return nil, err
	}
	p.log.Debugf("scratch area %s\n", scratch.Root())

	defer func() {
		if rerr := scratch.Release(); rerr != nil {
			p.log.Errorf("%v\n", rerr)
			if err == nil {
				res, err = nil, rerr
			}
		}
	}()

	asm := document.NewAssembler(p.cfg.PageSizes, p.log)

	results, err := p.fetchAndAssemble(ctx, req, scratch, asm)
	if err != nil {
		return nil, err
	}

	key := chapters.DocumentName(req.SeriesID, req.Range)
	docPath := scratch.Path(key)
	if err := asm.FinalizeFile(docPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	link, pages, err := p.publishFile(ctx, key, docPath)
	if err != nil {
		return nil, err
	}

	p.log.Infof("published %s (%d pages)\n", key, pages)

	layouts := asm.Pages()
	orientations := make([]document.Orientation, len(layouts))
	for i, pg := range layouts {
		orientations[i] = pg.Layout.Orientation
	}

	return &Result{
		Link:         link,
		Key:          key,
		Pages:        pages,
		Chapters:     results,
		Orientations: orientations,
	}, nil
}

// fetchAndAssemble fetches chapters on up to ChapterWorkers goroutines while
// the calling goroutine appends finished chapters in ascending order. It does
// not return before every fetch goroutine has exited.
func (p *Pipeline) fetchAndAssemble(ctx context.Context, req Request, scratch *Scratch, asm *document.Assembler) ([]ChapterResult, error) {
	nums := req.Range.Chapters()
	results := make([]ChapterResult, len(nums))
	dirs := make([]string, len(nums))
	ready := make([]chan struct{}, len(nums))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(fctx)
	g.SetLimit(p.cfg.ChapterWorkers)

	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i, n := range nums {
			g.Go(func() error {
				defer close(ready[i])
				if gctx.Err() != nil {
					return nil
				}

				dir, err := p.fetchChapter(gctx, req.SeriesID, n, scratch, &results[i])
				dirs[i] = dir
				return err
			})
		}
	}()

	var assembleErr error
	for i := range nums {
		<-ready[i]
		if gctx.Err() != nil {
			break
		}

		if err := p.assembleChapter(dirs[i], asm, &results[i]); err != nil {
			assembleErr = err
			cancel()
			break
		}
	}

	<-launched
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if assembleErr != nil {
		return nil, assembleErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// fetchChapter only returns an error for storage failures; an incomplete
// fetch is recorded in res.
func (p *Pipeline) fetchChapter(ctx context.Context, seriesID string, n int, scratch *Scratch, res *ChapterResult) (string, error) {
	res.Chapter = n
	res.URL = p.source.ChapterURL(seriesID, n)

	dir, err := scratch.ChapterDir(n)
	if err != nil {
		return "", err
	}

	var ph downloader.Progress
	if p.progress != nil {
		ph = p.progress(n)
	}

	fetched, err := p.fetcher.FetchChapter(ctx, res.URL, dir, ph)
	res.Expected = fetched.Expected
	res.Fetched = len(fetched.Files)
	res.Bytes = fetched.Bytes
	if err != nil {
		res.Err = err
		p.log.Warnf("chapter %d incomplete (%d/%d pages): %v\n", n, res.Fetched, res.Expected, err)
	}

	return dir, nil
}

func (p *Pipeline) assembleChapter(dir string, asm *document.Assembler, res *ChapterResult) error {
	names, err := pageNames(dir)
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := asm.AppendPage(dir, name); err != nil {
			res.Skipped++
			res.PageErrors = append(res.PageErrors, err)
		}
		res.Pages++
	}

	p.log.Debugf("chapter %d: %d pages appended, %d blank\n", res.Chapter, res.Pages, res.Skipped)
	return nil
}

// pageNames lists the regular files of a chapter directory in natural order.
func pageNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStorage, dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}

	return util.NaturalSort(names), nil
}

// publishFile checks the finished document and hands it to the publisher.
func (p *Pipeline) publishFile(ctx context.Context, key, path string) (string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer func() {
		_ = f.Close()
	}()

	pages, err := api.PageCount(f, nil)
	if err != nil {
		return "", 0, fmt.Errorf("verifying %s: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	link, err := p.publisher.Publish(ctx, key, f, info.Size())
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrPublish, err)
	}

	return link, pages, nil
}
