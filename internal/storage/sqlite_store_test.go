package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.EnsureSchema(context.Background()))
	return st
}

func seedListings(t *testing.T, st *SQLiteStore) {
	t.Helper()
	day := func(d int) domain.Date { return domain.DateOf(time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)) }
	n, err := st.UpsertMany(context.Background(), []domain.Property{
		{ID: "a", Title: "Garden flat", Address: "1 Camden Rd, London", Postcode: "NW1 9AB", Price: domain.QuantityOf(1500), Bedrooms: domain.QuantityOf(2), CreatedAt: day(1)},
		{ID: "b", Title: "Loft", Address: "Shoreditch High St, London", Postcode: "E1 6JE", Price: domain.QuantityOf(2200), Bedrooms: domain.QuantityOf(3), CreatedAt: day(5)},
		{ID: "c", Title: "Studio", Address: "Camden Lock", Postcode: "NW1 8AF", Price: domain.QuantityOf(950), Bedrooms: domain.QuantityOf(1), CreatedAt: day(3)},
		{ID: "d", Title: "Price on request", Address: "Camden Town", Postcode: "NW1"},
	})
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestUpsertMany_IgnoresDuplicates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedListings(t, st)

	n, err := st.UpsertMany(ctx, []domain.Property{{ID: "a", Title: "changed"}, {Title: "new"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := st.CountProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	got, err := st.GetProperty(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Garden flat", got.Title)
}

func TestCreateGetDeleteProperty(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.CreateProperty(ctx, domain.Property{
		Title:             "Canal-side two bed",
		Postcode:          "N1 9GU",
		Price:             domain.QuantityOf(1800),
		Bedrooms:          domain.QuantityOf(2),
		LifestyleFeatures: []string{"gym", "balcony"},
		ImageURLs:         []string{"https://img.example/1.jpg"},
		AvailableFrom:     domain.ParseDate("2026-11-01"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.True(t, created.CreatedAt.IsKnown())

	got, err := st.GetProperty(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Price, got.Price)
	assert.Equal(t, created.Bedrooms, got.Bedrooms)
	assert.False(t, got.Bathrooms.IsKnown())
	assert.Equal(t, []string{"gym", "balcony"}, got.LifestyleFeatures)
	assert.Equal(t, created.ImageURLs, got.ImageURLs)
	assert.True(t, created.AvailableFrom.Equal(got.AvailableFrom.Time))
	assert.Equal(t, created.CreatedAt.Unix(), got.CreatedAt.Unix())

	require.NoError(t, st.DeleteProperty(ctx, created.ID))
	_, err = st.GetProperty(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.DeleteProperty(ctx, created.ID), ErrNotFound)
}

func TestListPropertiesFiltered(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedListings(t, st)

	tests := []struct {
		name    string
		filter  PropertyFilter
		wantIDs []string
		total   int
	}{
		{"all by id", PropertyFilter{}, []string{"a", "b", "c", "d"}, 4},
		{"search is case-insensitive", PropertyFilter{Search: "CAMDEN"}, []string{"a", "c", "d"}, 3},
		{"search matches postcode", PropertyFilter{Search: "e1 6"}, []string{"b"}, 1},
		{"price range excludes unknown price", PropertyFilter{MinPrice: 1000, MaxPrice: 2000}, []string{"a"}, 1},
		{"min bedrooms", PropertyFilter{MinBedrooms: 2, Sort: "price_desc"}, []string{"b", "a"}, 2},
		{"price ascending puts unknown first", PropertyFilter{Sort: "price_asc"}, []string{"d", "c", "a", "b"}, 4},
		{"newest", PropertyFilter{Sort: "newest", Search: "london"}, []string{"b", "a"}, 2},
		{"paging keeps total", PropertyFilter{Limit: 2, Offset: 1}, []string{"b", "c"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := st.ListPropertiesFiltered(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)

			ids := make([]string, 0, len(items))
			for _, p := range items {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestAllProperties(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	empty, err := st.AllProperties(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	seedListings(t, st)
	all, err := st.AllProperties(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	loft, err := st.AllProperties(ctx, "loft")
	require.NoError(t, err)
	require.Len(t, loft, 1)
	assert.Equal(t, "b", loft[0].ID)
}

func TestPreferences_SaveAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.GetPreferences(ctx, "u-1")
	assert.ErrorIs(t, err, ErrNotFound)

	saved, err := st.SavePreferences(ctx, domain.PreferenceRecord{
		UserID:            "u-1",
		PrimaryPostcode:   "SW1A",
		MinPrice:          domain.QuantityOf(1000),
		DesignerFurniture: domain.No,
		LifestyleFeatures: []string{"gym"},
	})
	require.NoError(t, err)
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := st.GetPreferences(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "SW1A", got.PrimaryPostcode)
	assert.Equal(t, domain.QuantityOf(1000), got.MinPrice)
	assert.False(t, got.MaxPrice.IsKnown())
	assert.Equal(t, domain.No, got.DesignerFurniture)
	assert.Equal(t, []string{"gym"}, got.LifestyleFeatures)
	assert.Equal(t, saved.Version(), got.Version())

	// replace, not merge
	_, err = st.SavePreferences(ctx, domain.PreferenceRecord{UserID: "u-1", PrimaryPostcode: "E1"})
	require.NoError(t, err)
	got, err = st.GetPreferences(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "E1", got.PrimaryPostcode)
	assert.False(t, got.MinPrice.IsKnown())
}

func TestSavePreferences_RequiresUserID(t *testing.T) {
	st := newTestStore(t)
	_, err := st.SavePreferences(context.Background(), domain.PreferenceRecord{PrimaryPostcode: "E1"})
	assert.Error(t, err)
}
