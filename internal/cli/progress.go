package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/matzehuels/cargo2hf/pkg/observability"
)

// progressHooks renders extraction progress on a terminal: a spinner while
// dependencies resolve, then one bar step per (phase, crate).
type progressHooks struct {
	observability.NoopPipelineHooks

	w      io.Writer
	phases int
	quiet  bool

	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	failures int
}

func newProgressHooks(w io.Writer, phases int, quiet bool) *progressHooks {
	return &progressHooks{w: w, phases: phases, quiet: quiet}
}

func (h *progressHooks) OnResolveStart(_ context.Context, root string) {
	if h.quiet {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(h.w),
		progressbar.OptionSetDescription("Resolving "+root),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (h *progressHooks) OnResolveComplete(_ context.Context, _ string, targets int, _ time.Duration, err error) {
	if h.quiet {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bar != nil {
		_ = h.bar.Finish()
		h.bar = nil
	}
	if err != nil || targets == 0 || h.phases == 0 {
		return
	}
	h.bar = progressbar.NewOptions(targets*h.phases,
		progressbar.OptionSetWriter(h.w),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(h.w)
		}),
	)
}

func (h *progressHooks) OnPhaseComplete(_ context.Context, _, _ string, _ int, _ time.Duration, err error) {
	if h.quiet {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bar == nil {
		return
	}
	if err != nil {
		h.failures++
		h.bar.Describe(fmt.Sprintf("Extracting (%d failed)", h.failures))
	}
	_ = h.bar.Add(1)
}

// finish completes the bar. A cancelled run leaves the bar short of its
// maximum, so finish is called unconditionally after the run.
func (h *progressHooks) finish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bar != nil {
		_ = h.bar.Finish()
		h.bar = nil
	}
}

var _ observability.PipelineHooks = (*progressHooks)(nil)
