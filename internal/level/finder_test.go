package level

import (
	"testing"

	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinder_Find(t *testing.T) {
	finder := NewFinder(NewDiscovery(), newScorer(storage.NewMockStorage()), nil)

	empty := finder.Find(model.Snapshot{}, 43000)
	assert.Nil(t, empty.BestSupport)
	assert.Nil(t, empty.BestResistance)

	snapshot := model.BuildSnapshot(wave(2000, 43000, 300))
	last, _ := snapshot[model.M1].Last()
	result := finder.Find(snapshot, 0)

	require.NotNil(t, result.BestSupport)
	require.NotNil(t, result.BestResistance)
	assert.LessOrEqual(t, result.BestSupport.Price, last.Close)
	assert.GreaterOrEqual(t, result.BestResistance.Price, last.Close)
	for _, l := range result.Support {
		assert.LessOrEqual(t, l.Score, result.BestSupport.Score)
		assert.GreaterOrEqual(t, l.Score, 0.0)
		assert.LessOrEqual(t, l.Score, 100.0)
	}
	for _, l := range result.Resistance {
		assert.LessOrEqual(t, l.Score, result.BestResistance.Score)
	}
}

func TestBest(t *testing.T) {
	levels := []model.Level{
		{Price: 90, Score: 40},
		{Price: 95, Score: 40},
		{Price: 80, Score: 10},
	}
	b := best(levels, 100)
	require.NotNil(t, b)
	assert.Equal(t, 95.0, b.Price)
	assert.Nil(t, best(nil, 100))
}

func TestFinder_RecordTrade(t *testing.T) {
	st := storage.NewMockStorage()
	finder := NewFinder(NewDiscovery(), newScorer(st), DefaultTimeframeWeights())

	// a level without features carries no information
	finder.RecordTrade(model.Level{Price: 100}, true, 1)
	assert.Equal(t, 0, finder.Scorer().Samples())

	w := finder.RecordTrade(model.Level{Price: 100, Features: model.Features{model.Duration: 0.5}}, true, 1)
	assert.Equal(t, 1, finder.Scorer().Samples())
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	assert.Equal(t, 1, st.Writes)
}
