package json

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}

func TestStores(t *testing.T) {

	type test struct {
		store func(t *testing.T) storage.Store
	}

	tests := map[string]test{
		"file": {
			store: func(t *testing.T) storage.Store {
				return NewFileStore(t.TempDir())
			},
		},
		"local": {
			store: func(t *testing.T) storage.Store {
				return NewLocalStorage()
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			st := tt.store(t)
			k := storage.Key{Hash: 1, Pair: "BTCUSDT", Label: "weights"}

			var missing counter
			err := st.Load(k, &missing)
			assert.True(t, storage.IsMissing(err))

			err = st.Store(k, counter{Count: 1, Names: []string{"a"}})
			require.NoError(t, err)

			var loaded counter
			require.NoError(t, st.Load(k, &loaded))
			assert.Equal(t, counter{Count: 1, Names: []string{"a"}}, loaded)

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					var c counter
					err := st.Update(k, &c, func(found bool) error {
						c.Count++
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			require.NoError(t, st.Load(k, &loaded))
			assert.Equal(t, 21, loaded.Count)
		})
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	st := NewFileStore(dir)
	k := storage.Key{Pair: "BTCUSDT", Label: "corrupt"}
	require.NoError(t, os.WriteFile(filepath.Join(dir, k.Path()+".json"), []byte("{not-json"), 0600))

	var c counter
	err := st.Load(k, &c)
	assert.ErrorIs(t, err, storage.CouldNotLoadErr)

	err = st.Update(k, &c, func(found bool) error {
		c.Count++
		return nil
	})
	assert.Error(t, err)
}

func TestLedger(t *testing.T) {
	dir := t.TempDir()
	ledger := NewLedger(dir)

	trades, err := ledger.Recent(5)
	require.NoError(t, err)
	assert.Empty(t, trades)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, 0)
	for i := 0; i < 10; i++ {
		id := uuid.New().String()
		ids = append(ids, id)
		err := ledger.Append(model.ClosedTrade{
			Position: model.Position{
				TradeID:   id,
				Direction: model.Long,
				EntryTime: now,
			},
			ExitTime:   now.Add(time.Duration(i) * time.Minute),
			PnLPercent: float64(i),
			ExitReason: model.TakeProfit,
		})
		require.NoError(t, err)
	}

	// a broken line must not hide the rest of the log
	f, err := os.OpenFile(filepath.Join(dir, logFile), os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{broken\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	trades, err = ledger.Recent(3)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, ids[7:], []string{trades[0].TradeID, trades[1].TradeID, trades[2].TradeID})

	all, err := ledger.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}
