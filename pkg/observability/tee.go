package observability

import (
	"context"
	"time"
)

// TeePipeline returns hooks that forward every event to each of hooks in
// order. Nil entries are skipped; with a single remaining entry it is
// returned unchanged.
func TeePipeline(hooks ...PipelineHooks) PipelineHooks {
	var out teePipeline
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	switch len(out) {
	case 0:
		return NoopPipelineHooks{}
	case 1:
		return out[0]
	}
	return out
}

type teePipeline []PipelineHooks

func (t teePipeline) OnResolveStart(ctx context.Context, root string) {
	for _, h := range t {
		h.OnResolveStart(ctx, root)
	}
}

func (t teePipeline) OnResolveComplete(ctx context.Context, root string, targets int, d time.Duration, err error) {
	for _, h := range t {
		h.OnResolveComplete(ctx, root, targets, d, err)
	}
}

func (t teePipeline) OnPhaseStart(ctx context.Context, phase, target string) {
	for _, h := range t {
		h.OnPhaseStart(ctx, phase, target)
	}
}

func (t teePipeline) OnPhaseComplete(ctx context.Context, phase, target string, rows int, d time.Duration, err error) {
	for _, h := range t {
		h.OnPhaseComplete(ctx, phase, target, rows, d, err)
	}
}

func (t teePipeline) OnWriteComplete(ctx context.Context, phase string, rows int64, d time.Duration, err error) {
	for _, h := range t {
		h.OnWriteComplete(ctx, phase, rows, d, err)
	}
}
