package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/drakos74/level-trader/internal/model"
	ctime "github.com/drakos74/level-trader/internal/time"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Source polls the futures klines and yields the history every time a new bar closes.
type Source struct {
	exchange exchange
	config   Config
	limiter  *rate.Limiter
	backoff  func(ctx context.Context) backoff.BackOff
	now      func() time.Time
	history  model.Klines

	// backfilled is set once the history before the first request has been loaded.
	backfilled bool
}

// NewSource creates a live source for the user credentials found in the environment.
func NewSource(user string, config Config) *Source {
	return newSource(newFuturesAPI(exchangeConfig(user)), config)
}

func newSource(exchange exchange, config Config) *Source {
	return &Source{
		exchange: exchange,
		config:   config,
		limiter:  rate.NewLimiter(rate.Every(config.Rate.Duration), 1),
		backoff: func(ctx context.Context) backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = config.MaxElapsed.Duration
			return backoff.WithContext(b, ctx)
		},
		now:     time.Now,
		history: make(model.Klines, 0),
	}
}

// Next blocks until a new closed bar is available.
func (s *Source) Next(ctx context.Context) (model.Klines, error) {
	for {
		added, err := s.poll(ctx)
		if err != nil {
			return nil, err
		}
		if added > 0 {
			return s.history.Tail(s.config.Window), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.config.Poll.Duration):
		}
	}
}

// poll fetches the latest klines and appends the closed ones not seen yet.
func (s *Source) poll(ctx context.Context) (int, error) {
	klines, err := s.request(ctx, 0, Limit)
	if err != nil {
		return 0, err
	}

	last := int64(-1)
	if k, ok := s.history.Last(); ok {
		last = k.Time
	}
	added := 0
	for _, k := range klines {
		if k.Time > last {
			s.history = append(s.history, k)
			last = k.Time
			added++
		}
	}
	if !s.backfilled && len(s.history) > 0 {
		s.backfill(ctx)
	}
	s.history = s.history.Tail(s.config.Window)
	if added > 0 {
		log.Debug().
			Str("symbol", s.config.Symbol).
			Int("added", added).
			Int("bars", len(s.history)).
			Time("bar", ctime.FromMilli(last)).
			Msg("new klines")
	}
	return added, nil
}

// backfill requests the bars before the oldest one known until the window is full
// or the exchange has nothing older.
func (s *Source) backfill(ctx context.Context) {
	s.backfilled = true
	for len(s.history) < s.config.Window {
		first := s.history[0].Time
		limit := s.config.Window - len(s.history)
		if limit > Limit {
			limit = Limit
		}
		klines, err := s.request(ctx, first-1, limit)
		if err != nil {
			log.Warn().Err(err).Str("symbol", s.config.Symbol).Int("bars", len(s.history)).Msg("could not backfill klines")
			return
		}
		older := make(model.Klines, 0, len(klines))
		for _, k := range klines {
			if k.Time < first {
				older = append(older, k)
			}
		}
		if len(older) == 0 {
			return
		}
		s.history = append(older, s.history...)
	}
}

// request waits for the rate limit and fetches the klines with retries.
func (s *Source) request(ctx context.Context, endTime int64, limit int) (model.Klines, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("could not wait for rate limit: %w", err)
	}
	var klines model.Klines
	err := backoff.Retry(func() error {
		kk, err := s.fetch(ctx, endTime, limit)
		if err != nil {
			log.Warn().Err(err).Str("symbol", s.config.Symbol).Msg("could not get klines")
			return err
		}
		klines = kk
		return nil
	}, s.backoff(ctx))
	if err != nil {
		return nil, fmt.Errorf("could not get klines for '%s': %w", s.config.Symbol, err)
	}
	return klines, nil
}

// fetch returns the closed klines of one request. Malformed bars are skipped.
func (s *Source) fetch(ctx context.Context, endTime int64, limit int) (model.Klines, error) {
	kk, err := s.exchange.Klines(ctx, s.config.Symbol, Interval, limit, endTime)
	if err != nil {
		return nil, err
	}
	now := ctime.ToMilli(s.now())
	klines := make(model.Klines, 0, len(kk))
	for _, k := range kk {
		// the last bar is still open
		if k.CloseTime >= now {
			continue
		}
		kline, err := convert(k)
		if err != nil {
			log.Warn().Err(err).Str("symbol", s.config.Symbol).Int64("open_time", k.OpenTime).Msg("skipping malformed kline")
			continue
		}
		klines = append(klines, kline)
	}
	return klines, nil
}
