package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/brogergvhs/mangapdf/internal/util"
)

type Stats struct {
	TotalImages    atomic.Int64
	TotalBytes     atomic.Int64
	TotalChapters  atomic.Int64
	FailedChapters atomic.Int64
	SkippedPages   atomic.Int64
}

// Summary writes the end-of-run report printed by the CLI.
func (s *Stats) Summary(w io.Writer, elapsed time.Duration) {
	_, _ = fmt.Fprintln(w, "Convert Summary:")
	_, _ = fmt.Fprintf(w, "Chapters: %d", s.TotalChapters.Load())
	if failed := s.FailedChapters.Load(); failed > 0 {
		_, _ = fmt.Fprintf(w, " (%d incomplete)", failed)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Pages:    %d", s.TotalImages.Load())
	if skipped := s.SkippedPages.Load(); skipped > 0 {
		_, _ = fmt.Fprintf(w, " (%d blank)", skipped)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Data:     %s\n", util.Human(s.TotalBytes.Load()))
	_, _ = fmt.Fprintf(w, "Time:     %s\n", elapsed.Round(time.Second))
}
