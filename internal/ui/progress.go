package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/brogergvhs/mangapdf/internal/util"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// MPBProgressManager renders one bar per chapter. Bars are ordered by
// chapter number whatever order the fetches start in.
type MPBProgressManager struct {
	p *mpb.Progress
}

func NewProgressManager(w io.Writer) *MPBProgressManager {
	p := mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(w),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	return &MPBProgressManager{p: p}
}

// Close waits for every bar to finish rendering.
func (pm *MPBProgressManager) Close() {
	pm.p.Wait()
}

func (pm *MPBProgressManager) Register(chapter int) *ProgressHandle {
	h := &ProgressHandle{start: time.Now()}

	h.bar = pm.p.New(
		0,
		mpb.BarStyle().Rbound("]"),
		mpb.BarPriority(chapter),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("Ch.%-5d", chapter)),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d pages", decor.WCSyncWidth),
			decor.Any(func(decor.Statistics) string {
				return " | " + util.Human(h.bytes.Load())
			}),
			decor.Any(func(decor.Statistics) string {
				return " | " + h.status()
			}),
		),
	)

	return h
}

// ProgressHandle is the downloader's view of one bar. Once the bar is done or
// failed further updates are ignored.
type ProgressHandle struct {
	bar *mpb.Bar

	total atomic.Int64
	bytes atomic.Int64

	start   time.Time
	elapsed atomic.Int64

	final  atomic.Bool
	failed atomic.Bool
}

func (h *ProgressHandle) status() string {
	switch {
	case h.failed.Load():
		return "incomplete"
	case h.final.Load():
		return fmt.Sprintf("%ds", h.elapsed.Load())
	}
	return fmt.Sprintf("%ds", int64(time.Since(h.start).Seconds()))
}

func (h *ProgressHandle) SetTotal(total int) {
	if h.final.Load() {
		return
	}

	h.total.Store(int64(total))
	h.bar.SetTotal(int64(total), false)
}

func (h *ProgressHandle) Update(done, total int, bytes int64) {
	if h.final.Load() {
		return
	}

	if total > 0 && int64(total) != h.total.Load() {
		h.SetTotal(total)
	}

	h.bytes.Store(bytes)
	h.bar.SetCurrent(int64(done))
}

func (h *ProgressHandle) MarkDone() {
	if h.final.Swap(true) {
		return
	}

	h.elapsed.Store(int64(time.Since(h.start).Seconds()))
	total := h.total.Load()
	h.bar.SetCurrent(total)
	h.bar.SetTotal(total, true)
}

// MarkFailed freezes the bar where the chapter stopped and leaves it on
// screen.
func (h *ProgressHandle) MarkFailed() {
	if h.final.Swap(true) {
		return
	}

	h.failed.Store(true)
	h.bar.Abort(false)
}
