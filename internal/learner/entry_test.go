package learner

import (
	"fmt"
	"testing"

	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradeID(i int) string {
	return fmt.Sprintf("bt_%05d", i)
}

func entryInput(base float64) EntryInput {
	state := marketState(100, 0.5, model.Long)
	state.MicroTrend = model.Trend{Direction: model.Long}
	return EntryInput{
		State:     state,
		Direction: model.Long,
		Reason:    model.NearSupport,
		Conditions: Conditions{
			SupportDistance:    0.5,
			ResistanceDistance: 3,
			RSI:                35,
			Slope:              0.0005,
			VolumeRatio:        1.5,
		},
		BaseScore: base,
		Draw:      0.99,
	}
}

func TestEntry_Inputs(t *testing.T) {
	x := inputs(entryInput(60))
	require.Len(t, x, numInputs)
	assert.Equal(t, 1.0, x[bias])
	assert.InDelta(t, 0.75, x[proximity], 1e-12)
	assert.Equal(t, 1.0, x[room])
	assert.Equal(t, 1.0, x[trend])
	assert.InDelta(t, 0.3, x[momentum], 1e-12)
	assert.InDelta(t, 0.6, x[levelScore], 1e-12)
	assert.Equal(t, 1.0, x[micro])
	assert.InDelta(t, 0.5, x[slope], 1e-12)
	assert.InDelta(t, 0.75, x[volume], 1e-12)

	short := entryInput(60)
	short.Direction = model.Short
	x = inputs(short)
	assert.Equal(t, 0.0, x[proximity])
	assert.InDelta(t, 0.25, x[room], 1e-12)
	assert.Equal(t, -1.0, x[trend])
	assert.InDelta(t, -0.3, x[momentum], 1e-12)
	assert.Equal(t, -1.0, x[micro])
	assert.InDelta(t, -0.5, x[slope], 1e-12)
	assert.InDelta(t, 0.75, x[volume], 1e-12)

	steep := entryInput(60)
	steep.Conditions.Slope = 0.01
	steep.Conditions.VolumeRatio = 5
	x = inputs(steep)
	assert.Equal(t, 1.0, x[slope])
	assert.Equal(t, 1.0, x[volume])
}

func TestEntry_PredictBelowMinSamples(t *testing.T) {
	st := storage.NewMockStorage()
	l := NewEntry(DefaultEntryConfig(), st, "BTCUSDT")

	p := l.Predict(entryInput(42))
	assert.Equal(t, 42.0, p.Score)
	assert.Equal(t, 30.0, p.Threshold)
	assert.False(t, p.Explore)
	assert.True(t, p.Take())

	// predict does not change the learner
	assert.Equal(t, p, l.Predict(entryInput(42)))
	assert.Equal(t, 0, st.Writes)

	in := entryInput(10)
	in.Draw = 0.1
	p = l.Predict(in)
	assert.True(t, p.Explore)
	assert.True(t, p.Take())
}

func TestEntry_Threshold(t *testing.T) {

	type test struct {
		results   []bool
		reason    model.EntryReason
		threshold float64
	}

	repeat := func(n int, v bool) []bool {
		rr := make([]bool, n)
		for i := range rr {
			rr[i] = v
		}
		return rr
	}

	tests := map[string]test{
		"cold-start": {
			threshold: 30,
			reason:    model.NearSupport,
		},
		"losing-streak": {
			// 5 losses : base 30 + 10 recent + 20 streak
			results:   repeat(5, false),
			reason:    model.NearSupport,
			threshold: 60,
		},
		"winning-streak": {
			// 5 wins : base 30 - 5 recent - 5 streak
			results:   repeat(5, true),
			reason:    model.NearSupport,
			threshold: 20,
		},
		"good-reason": {
			// 12 wins : base 40 - 5 - 5 - 10
			results:   repeat(12, true),
			reason:    model.NearSupport,
			threshold: 20,
		},
		"other-reason": {
			results:   repeat(12, true),
			reason:    model.NearResistance,
			threshold: 30,
		},
		"bad-reason": {
			// 12 losses : base 40 + 10 + 20 + 15
			results:   repeat(12, false),
			reason:    model.NearSupport,
			threshold: 80,
		},
		"mature": {
			results:   append(repeat(50, true), false, true, false, true, false),
			reason:    model.NearResistance,
			threshold: 55,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			l := NewEntry(DefaultEntryConfig(), storage.NewMockStorage(), "BTCUSDT")
			for i, win := range tt.results {
				id := tradeID(i)
				l.Open(id, l.Predict(entryInput(50)))
				pnl := -0.5
				if win {
					pnl = 0.5
				}
				require.True(t, l.Record(id, Outcome{PnLPercent: pnl}))
			}
			assert.Equal(t, tt.threshold, l.Threshold(tt.reason))
		})
	}
}

func TestEntry_Learn(t *testing.T) {
	st := storage.NewMockStorage()
	config := DefaultEntryConfig()
	config.MinSamples = 5
	l := NewEntry(config, st, "BTCUSDT")

	assert.False(t, l.Record("unknown", Outcome{PnLPercent: 1}))
	assert.Equal(t, 0, l.Samples())

	for i := 0; i < 5; i++ {
		id := tradeID(i)
		l.Open(id, l.Predict(entryInput(50)))
		require.True(t, l.Record(id, Outcome{PnLPercent: 2}))
		// recorded once only
		assert.False(t, l.Record(id, Outcome{PnLPercent: 2}))
	}
	assert.Equal(t, 5, l.Samples())

	// profitable setups are scored above the base score
	p := l.Predict(entryInput(50))
	assert.Greater(t, p.Output, 0.0)
	assert.Greater(t, p.Score, 50.0)
	assert.LessOrEqual(t, p.Score, 100.0)

	assert.Less(t, l.ExplorationRate(), config.ExplorationRate)
	assert.GreaterOrEqual(t, l.ExplorationRate(), config.MinExplorationRate)

	reloaded := NewEntry(config, st, "BTCUSDT")
	assert.Equal(t, 5, reloaded.Samples())
	assert.Equal(t, p, reloaded.Predict(entryInput(50)))
}

func TestConditionsOf(t *testing.T) {
	state := marketState(100, 0.5, model.Long)
	c := ConditionsOf(state)
	assert.Equal(t, -1.0, c.SupportDistance)
	assert.Equal(t, -1.0, c.ResistanceDistance)
	assert.Equal(t, 50.0, c.RSI)
	assert.Equal(t, 0.0, c.Slope)
	assert.Equal(t, 1.0, c.VolumeRatio)

	state.Analysis[model.M1] = model.Analysis{Slope: 0.0002, VolumeRatio: 1.8}
	c = ConditionsOf(state)
	assert.Equal(t, 0.0002, c.Slope)
	assert.Equal(t, 1.8, c.VolumeRatio)

	state.BestSupport = &model.Level{Price: 99}
	state.BestResistance = &model.Level{Price: 102}
	c = ConditionsOf(state)
	assert.InDelta(t, 1.0, c.SupportDistance, 1e-12)
	assert.InDelta(t, 2.0, c.ResistanceDistance, 1e-12)
}
