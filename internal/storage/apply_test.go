package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state struct {
	Count  int            `json:"count"`
	Values map[string]int `json:"values"`
}

func inc(s *state) {
	s.Count++
	if s.Values == nil {
		s.Values = make(map[string]int)
	}
	s.Values["x"]++
}

func TestApply(t *testing.T) {

	type test struct {
		stored    *state
		failStore bool
		failLoad  bool
		count     int
		err       bool
		persisted int
	}

	tests := map[string]test{
		"nothing-stored": {
			count:     2,
			persisted: 2,
		},
		"stored-wins-over-memory": {
			stored:    &state{Count: 10},
			count:     11,
			persisted: 11,
		},
		"write-failure-continues-in-memory": {
			stored:    &state{Count: 10},
			failStore: true,
			count:     2,
			err:       true,
			persisted: 10,
		},
		"read-failure-continues-in-memory": {
			failLoad: true,
			count:    2,
			err:      true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m := NewMockStorage()
			k := Key{Pair: "BTCUSDT", Label: "test"}
			if tt.stored != nil {
				require.NoError(t, m.Store(k, tt.stored))
			}
			m.FailStore = tt.failStore
			m.FailLoad = tt.failLoad

			current := state{Count: 1, Values: map[string]int{"x": 1}}
			next, err := Apply(m, k, current, inc)
			if tt.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.count, next.Count)
			// the given state is never mutated
			assert.Equal(t, 1, current.Count)
			assert.Equal(t, 1, current.Values["x"])

			m.FailLoad = false
			var persisted state
			if LoadOr(m, k, &persisted) {
				assert.Equal(t, tt.persisted, persisted.Count)
			} else {
				assert.Equal(t, 0, tt.persisted)
			}
		})
	}
}

func TestVoidStorage(t *testing.T) {
	st, err := VoidShard()("any")
	require.NoError(t, err)
	k := Key{Label: "void"}
	next, err := Apply(st, k, state{Count: 1}, inc)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Count)
	var s state
	assert.False(t, LoadOr(st, k, &s))
}

func TestMemoryLedger(t *testing.T) {
	l := NewMemoryLedger()
	trades, err := l.Recent(3)
	require.NoError(t, err)
	assert.Empty(t, trades)
}
