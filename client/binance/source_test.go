package binance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/cenkalti/backoff/v4"
	"github.com/drakos74/level-trader/internal/model"
	ctime "github.com/drakos74/level-trader/internal/time"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minute = int64(60000)

type mockExchange struct {
	responses [][]*futures.Kline
	// older serves the requests with an end time
	older    []*futures.Kline
	endTimes []int64
	errors   int
	calls    int
}

func (m *mockExchange) Klines(ctx context.Context, symbol, interval string, limit int, endTime int64) ([]*futures.Kline, error) {
	m.calls++
	if m.errors > 0 {
		m.errors--
		return nil, errors.New("connection reset")
	}
	if endTime > 0 {
		m.endTimes = append(m.endTimes, endTime)
		kk := make([]*futures.Kline, 0)
		for _, k := range m.older {
			if k.OpenTime <= endTime {
				kk = append(kk, k)
			}
		}
		if len(kk) > limit {
			kk = kk[len(kk)-limit:]
		}
		return kk, nil
	}
	if len(m.responses) == 0 {
		return nil, nil
	}
	r := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return r, nil
}

func kline(i int64, close float64) *futures.Kline {
	return &futures.Kline{
		OpenTime:  i * minute,
		Open:      "100",
		High:      "101",
		Low:       "99",
		Close:     fmt.Sprintf("%.1f", close),
		Volume:    "10",
		CloseTime: (i+1)*minute - 1,
	}
}

func testSource(ex exchange, now int64) *Source {
	config := DefaultConfig("BTCUSDT")
	config.Poll = ctime.Of(time.Millisecond)
	config.Rate = ctime.Of(time.Millisecond)
	config.Window = 3
	s := newSource(ex, config)
	s.backoff = func(ctx context.Context) backoff.BackOff {
		return backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 5), ctx)
	}
	s.now = func() time.Time {
		return time.UnixMilli(now)
	}
	return s
}

func TestSource_Next(t *testing.T) {
	ex := &mockExchange{
		responses: [][]*futures.Kline{
			// the last one is still open
			{kline(1, 1), kline(2, 2), kline(3, 3), kline(4, 4), kline(5, 5)},
			{kline(4, 4), kline(5, 5)},
		},
		errors: 2,
	}
	s := testSource(ex, 5*minute+10)

	kk, err := s.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, kk, 3)
	assert.Equal(t, 2.0, kk[0].Close)
	assert.Equal(t, 4.0, kk[2].Close)
	assert.Equal(t, 3, ex.calls)

	// nothing new until the bar closes
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Next(ctx)
	assert.Error(t, err)

	s.now = func() time.Time {
		return time.UnixMilli(6*minute + 10)
	}
	kk, err = s.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, kk, 3)
	assert.Equal(t, 5.0, kk[2].Close)
}

func TestSource_SkipsMalformed(t *testing.T) {
	bad := kline(2, 2)
	bad.Close = ""
	inverted := kline(3, 3)
	inverted.High = "90"
	ex := &mockExchange{
		responses: [][]*futures.Kline{
			{kline(1, 1), bad, inverted, kline(4, 4), kline(5, 5)},
		},
	}
	s := testSource(ex, 6*minute)

	kk, err := s.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, kk, 3)
	assert.Equal(t, []float64{1, 4, 5}, kk.Closes())
	assert.Equal(t, 1, ex.calls)
}

func TestSource_Backfill(t *testing.T) {
	older := make([]*futures.Kline, 0)
	for i := int64(1); i <= 6; i++ {
		older = append(older, kline(i, float64(i)))
	}
	ex := &mockExchange{
		responses: [][]*futures.Kline{
			{kline(7, 7), kline(8, 8), kline(9, 9)},
		},
		older: older,
	}
	s := testSource(ex, 10*minute)
	s.config.Window = 8

	kk, err := s.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, kk, 8)
	assert.Equal(t, []float64{2, 3, 4, 5, 6, 7, 8, 9}, kk.Closes())
	assert.Equal(t, []int64{7*minute - 1}, ex.endTimes)

	// the backfill happens once
	s.now = func() time.Time {
		return time.UnixMilli(11 * minute)
	}
	ex.responses = [][]*futures.Kline{{kline(9, 9), kline(10, 10)}}
	kk, err = s.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, kk, 8)
	assert.Equal(t, 10.0, kk[7].Close)
	assert.Len(t, ex.endTimes, 1)
}

func TestSource_BackfillExhausted(t *testing.T) {
	ex := &mockExchange{
		responses: [][]*futures.Kline{
			{kline(7, 7), kline(8, 8)},
		},
		older: []*futures.Kline{kline(6, 6)},
	}
	s := testSource(ex, 9*minute)
	s.config.Window = 10

	kk, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 7, 8}, kk.Closes())
	assert.Equal(t, []int64{7*minute - 1, 6*minute - 1}, ex.endTimes)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("BTCUSDT")
	assert.Equal(t, model.SnapshotBars, config.Window)
	assert.Greater(t, config.Window, Limit)
}

func TestSource_Failure(t *testing.T) {
	ex := &mockExchange{errors: 100}
	s := testSource(ex, 5*minute)
	_, err := s.Next(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 6, ex.calls)
}

func TestConvert(t *testing.T) {
	k, err := convert(kline(1, 42.5))
	require.NoError(t, err)
	assert.Equal(t, minute, k.Time)
	assert.Equal(t, 42.5, k.Close)
	assert.Equal(t, 10.0, k.Volume)

	bad := kline(1, 1)
	bad.High = "x"
	_, err = convert(bad)
	assert.Error(t, err)

	nan := kline(1, 1)
	nan.Low = "NaN"
	_, err = convert(nan)
	assert.Error(t, err)
}
