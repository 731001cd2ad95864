package redis

import (
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/drakos74/level-trader/internal/storage"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Count  int            `json:"count"`
	Values map[string]int `json:"values"`
}

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return client, mr
}

func TestStore_StoreLoad(t *testing.T) {
	client, mr := setupTestRedis(t)
	st, err := Shard(client, "levels")("learner")
	require.NoError(t, err)

	k := storage.Key{Pair: "BTCUSDT", Label: "weights"}

	var r record
	err = st.Load(k, &r)
	assert.True(t, storage.IsMissing(err))

	require.NoError(t, st.Store(k, record{Count: 3}))
	require.NoError(t, st.Load(k, &r))
	assert.Equal(t, 3, r.Count)
	assert.True(t, mr.Exists("levels:learner:BTCUSDT_0_weights"))

	mr.Set("levels:learner:BTCUSDT_0_weights", "{broken")
	err = st.Load(k, &r)
	assert.ErrorIs(t, err, storage.CouldNotLoadErr)
}

func TestStore_Update(t *testing.T) {
	client, _ := setupTestRedis(t)
	st := NewStore(client, "test")
	k := storage.Key{Pair: "BTCUSDT", Label: "stats"}

	workers := 5
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := record{Values: make(map[string]int)}
			err := st.Update(k, &r, func(found bool) error {
				r.Count++
				if r.Values == nil {
					r.Values = make(map[string]int)
				}
				r.Values[string(rune('a'+i))] = i
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var r record
	require.NoError(t, st.Load(k, &r))
	assert.Equal(t, workers, r.Count)
	assert.Len(t, r.Values, workers)
}

func TestStore_UpdateAbort(t *testing.T) {
	client, _ := setupTestRedis(t)
	st := NewStore(client, "test")
	k := storage.Key{Pair: "BTCUSDT", Label: "abort"}
	require.NoError(t, st.Store(k, record{Count: 1}))

	var r record
	err := st.Update(k, &r, func(found bool) error {
		r.Count = 100
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	require.NoError(t, st.Load(k, &r))
	assert.Equal(t, 1, r.Count)
}
