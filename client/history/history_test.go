package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drakos74/level-trader/client"
	"github.com/drakos74/level-trader/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {

	type test struct {
		csv   string
		bars  int
		first model.Kline
		err   bool
	}

	tests := map[string]test{
		"millis": {
			csv: `timestamp,open,high,low,close,volume
1704067200000,42000,42100,41900,42050,12.5
1704067260000,42050,42080,42000,42010,3`,
			bars:  2,
			first: model.Kline{Time: 1704067200000, Open: 42000, High: 42100, Low: 41900, Close: 42050, Volume: 12.5},
		},
		"date-time": {
			csv: `open_time,open,high,low,close,volume
2024-01-01 00:00:00,1,2,0.5,1.5,10`,
			bars:  1,
			first: model.Kline{Time: 1704067200000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		},
		"skip-malformed": {
			csv: `timestamp,open,high,low,close,volume
1704067200000,42000,42100,41900,42050,12.5
1704067260000,42050,x,42000,42010,3
1704067320000,42050
bad,1,2,3,4,5
1704067380000,42010,42020,41990,42000,1
1704067380000,42010,42020,41990,42000,1`,
			bars:  2,
			first: model.Kline{Time: 1704067200000, Open: 42000, High: 42100, Low: 41900, Close: 42050, Volume: 12.5},
		},
		"invalid-values": {
			csv: `timestamp,open,high,low,close,volume
1704067200000,42000,42100,41900,42050,12.5
1704067260000,42050,NaN,42000,42010,3
1704067320000,42050,41000,42000,42010,3
1704067380000,42010,42020,41990,+Inf,1
1704067440000,42010,42020,41990,42000,1`,
			bars:  2,
			first: model.Kline{Time: 1704067200000, Open: 42000, High: 42100, Low: 41900, Close: 42050, Volume: 12.5},
		},
		"missing-column": {
			csv: `timestamp,open,high,low,close
1704067200000,42000,42100,41900,42050`,
			err: true,
		},
		"no-time": {
			csv: `date,open,high,low,close,volume`,
			err: true,
		},
		"empty": {
			csv: ``,
			err: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			kk, err := Read(strings.NewReader(tt.csv))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, kk, tt.bars)
			assert.Equal(t, tt.first, kk[0])
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "btc.csv")
	err := os.WriteFile(path, []byte("timestamp,open,high,low,close,volume\n1704067200000,1,2,0.5,1.5,10\n"), 0644)
	require.NoError(t, err)

	kk, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, kk, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestReplay(t *testing.T) {
	bars := make(model.Klines, 10)
	for i := range bars {
		bars[i] = model.Kline{Time: int64(i) * 60000, Close: float64(i)}
	}

	r := NewReplay(bars, 5, 3)
	assert.Equal(t, 5, r.Remaining())

	kk, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, kk, 3)
	last, _ := kk.Last()
	assert.Equal(t, 5.0, last.Close)

	for i := 6; i < 10; i++ {
		kk, err = r.Next(context.Background())
		require.NoError(t, err)
		last, _ = kk.Last()
		assert.Equal(t, float64(i), last.Close)
	}
	_, err = r.Next(context.Background())
	assert.True(t, errors.Is(err, client.Done))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewReplay(bars, 0, 0).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	kk, err = NewReplay(bars, 2, 0).Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, kk, 3)
}
