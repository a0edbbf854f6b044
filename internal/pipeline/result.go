package pipeline

import (
	"errors"

	"github.com/brogergvhs/mangapdf/internal/chapters"
	"github.com/brogergvhs/mangapdf/internal/document"
)

var (
	// ErrStorage is fatal: scratch space could not be created, read or removed.
	ErrStorage = errors.New("scratch storage failure")
	// ErrPublish is fatal: the finished document could not be stored.
	ErrPublish = errors.New("publish failed")
	// ErrInvalidRange is returned before any work when the range is unusable.
	ErrInvalidRange = chapters.ErrInvalidRange
)

type Request struct {
	SeriesID string
	Range    chapters.Range
}

// ChapterResult is the outcome of one chapter. Err is set when the fetch
// stopped early; PageErrors lists pages that were left blank.
type ChapterResult struct {
	Chapter    int     `json:"chapter"`
	URL        string  `json:"url"`
	Expected   int     `json:"expected"`
	Fetched    int     `json:"fetched"`
	Pages      int     `json:"pages"`
	Skipped    int     `json:"skipped"`
	Bytes      int64   `json:"bytes"`
	Err        error   `json:"-"`
	PageErrors []error `json:"-"`
}

// Complete reports whether every page of the chapter made it into the
// document.
func (c ChapterResult) Complete() bool {
	return c.Err == nil && c.Skipped == 0
}

// Result describes a published document. Orientations holds one entry per
// appended page in document order.
type Result struct {
	Link         string                 `json:"link"`
	Key          string                 `json:"key"`
	Pages        int                    `json:"pages"`
	Chapters     []ChapterResult        `json:"chapters"`
	Orientations []document.Orientation `json:"-"`
}

// Incomplete lists the chapters that are missing pages or content.
func (r *Result) Incomplete() []ChapterResult {
	var out []ChapterResult
	for _, c := range r.Chapters {
		if !c.Complete() {
			out = append(out, c)
		}
	}
	return out
}
