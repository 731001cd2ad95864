package history

import (
	"context"

	"github.com/drakos74/level-trader/client"
	"github.com/drakos74/level-trader/internal/model"
)

// DefaultStart is the first bar index replayed, so that the levels have some history to work with.
const DefaultStart = 200

// Replay is a source going through recorded bars.
type Replay struct {
	bars   model.Klines
	index  int
	window int
}

// NewReplay creates a source that yields the bars from the start index onwards.
// Each step returns up to window bars of history, all of it if window is not positive.
func NewReplay(bars model.Klines, start, window int) *Replay {
	if start < 0 {
		start = 0
	}
	return &Replay{
		bars:   bars,
		index:  start,
		window: window,
	}
}

// Next returns the history up to the next bar.
func (r *Replay) Next(ctx context.Context) (model.Klines, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if r.index >= len(r.bars) {
		return nil, client.Done
	}
	from := 0
	if r.window > 0 && r.index+1 > r.window {
		from = r.index + 1 - r.window
	}
	kk := r.bars[from : r.index+1]
	r.index++
	return kk, nil
}

// Remaining returns the number of bars not replayed yet.
func (r *Replay) Remaining() int {
	if r.index >= len(r.bars) {
		return 0
	}
	return len(r.bars) - r.index
}
