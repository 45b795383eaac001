package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/denisok6893-rgb/rental-matching/internal/cache"
	"github.com/denisok6893-rgb/rental-matching/internal/domain"
	"github.com/denisok6893-rgb/rental-matching/internal/matching"
)

func TestMatchCache_StoreThenLookup(t *testing.T) {
	kv := newFakeKVStore()
	mc := cache.NewMatchCache(kv, time.Minute, zap.NewNop())
	ctx := context.Background()

	p := domain.Property{ID: "p-1", Price: domain.QuantityOf(1200), Postcode: "E1"}
	res := domain.MatchResult{
		Property:     p,
		MatchScore:   80,
		MatchReasons: []string{"Within your budget"},
		Breakdown:    []domain.CategoryScore{{Category: "price", Weight: 30, Credit: 1}},
	}

	_, ok, err := mc.Lookup(ctx, "v1", p)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Store(ctx, "v1", res))
	got, ok, err := mc.Lookup(ctx, "v1", p)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res, got)

	_, err = kv.Get(ctx, "match:v1:p-1:"+p.Version())
	require.NoError(t, err)
}

func TestMatchCache_KeyChangesWithListing(t *testing.T) {
	kv := newFakeKVStore()
	mc := cache.NewMatchCache(kv, time.Minute, nil)
	ctx := context.Background()

	p := domain.Property{ID: "p-1", Price: domain.QuantityOf(1200)}
	require.NoError(t, mc.Store(ctx, "v1", domain.MatchResult{Property: p, MatchScore: 50, MatchReasons: []string{}}))

	p.Price = domain.QuantityOf(1300)
	_, ok, err := mc.Lookup(ctx, "v1", p)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = mc.Lookup(ctx, "v2", domain.Property{ID: "p-1", Price: domain.QuantityOf(1200)})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchCache_BackendErrors(t *testing.T) {
	kv := newFakeKVStore()
	kv.err = errors.New("connection refused")
	mc := cache.NewMatchCache(kv, 0, zap.NewNop())
	ctx := context.Background()

	_, ok, err := mc.Lookup(ctx, "v1", domain.Property{ID: "x"})
	assert.Error(t, err)
	assert.False(t, ok)

	assert.Error(t, mc.Store(ctx, "v1", domain.MatchResult{Property: domain.Property{ID: "x"}}))
}

func TestMatchCache_CorruptEntry(t *testing.T) {
	kv := newFakeKVStore()
	mc := cache.NewMatchCache(kv, time.Minute, zap.NewNop())
	ctx := context.Background()
	p := domain.Property{ID: "x"}

	require.NoError(t, kv.Set(ctx, cache.Key("v1", p), "{not json", 0))
	_, ok, err := mc.Lookup(ctx, "v1", p)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMatchCache_WithEngine(t *testing.T) {
	kv := newFakeKVStore()
	mc := cache.NewMatchCache(kv, time.Minute, zap.NewNop())
	engine := matching.NewEngine(matching.DefaultWeights(), matching.WithCache(mc))

	prefs := domain.PreferenceRecord{
		PrimaryPostcode: "SW1A",
		MinPrice:        domain.QuantityOf(1000),
		MaxPrice:        domain.QuantityOf(2000),
		MinBedrooms:     domain.QuantityOf(2),
	}
	props := []domain.Property{
		{ID: "1", Price: domain.QuantityOf(1500), Bedrooms: domain.QuantityOf(2), Postcode: "SW1A"},
		{ID: "2", Price: domain.QuantityOf(5000), Bedrooms: domain.QuantityOf(4), Postcode: "E1"},
	}

	first, err := engine.Match(context.Background(), prefs, props, matching.MatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, kv.sets)

	second, err := engine.Match(context.Background(), prefs, props, matching.MatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, kv.sets)
	assert.Equal(t, first.Matches, second.Matches)
}

func scoresByID(r matching.MatchReport) map[string]int {
	out := make(map[string]int, len(r.Matches))
	for _, m := range r.Matches {
		out[m.Property.ID] = m.MatchScore
	}
	return out
}

func TestMatchCache_SharedAcrossWeights(t *testing.T) {
	kv := newFakeKVStore()
	mc := cache.NewMatchCache(kv, time.Minute, zap.NewNop())

	prefs := domain.PreferenceRecord{
		PrimaryPostcode: "SW1A",
		MinPrice:        domain.QuantityOf(1000),
		MaxPrice:        domain.QuantityOf(2000),
		MinBedrooms:     domain.QuantityOf(2),
	}
	props := []domain.Property{
		{ID: "1", Price: domain.QuantityOf(1500), Bedrooms: domain.QuantityOf(2), Postcode: "SW1A"},
		{ID: "2", Price: domain.QuantityOf(5000), Bedrooms: domain.QuantityOf(4), Postcode: "E1"},
	}

	reweighted := matching.DefaultWeights()
	reweighted.Match.Price = 0
	reweighted.Match.Location = 0
	require.NotEqual(t, matching.DefaultWeights().Version(), reweighted.Version())

	ctx := context.Background()
	byDefault, err := matching.NewEngine(matching.DefaultWeights(), matching.WithCache(mc)).Match(ctx, prefs, props, matching.MatchOptions{})
	require.NoError(t, err)
	cached, err := matching.NewEngine(reweighted, matching.WithCache(mc)).Match(ctx, prefs, props, matching.MatchOptions{})
	require.NoError(t, err)
	uncached, err := matching.NewEngine(reweighted).Match(ctx, prefs, props, matching.MatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, kv.sets)
	assert.Equal(t, scoresByID(uncached), scoresByID(cached))
	assert.NotEqual(t, scoresByID(byDefault)["2"], scoresByID(cached)["2"])
}
