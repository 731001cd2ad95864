package client

import (
	"context"
	"errors"

	"github.com/drakos74/level-trader/internal/model"
)

// Done is returned by a source that has no more bars.
var Done = errors.New("source exhausted")

// Source provides the 1-minute history of the instrument, one closed bar at a time.
type Source interface {
	// Next blocks until a new bar closes and returns the history up to and including it.
	Next(ctx context.Context) (model.Klines, error)
}
