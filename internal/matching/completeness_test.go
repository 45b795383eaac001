package matching

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
)

func essentialsOnly() domain.PreferenceRecord {
	return domain.PreferenceRecord{
		UserID:          "u-1",
		PrimaryPostcode: "SW1A",
		MinPrice:        domain.QuantityOf(1000),
		MaxPrice:        domain.QuantityOf(2000),
		MinBedrooms:     domain.QuantityOf(2),
	}
}

func fullPreferences() domain.PreferenceRecord {
	p := essentialsOnly()
	p.Furnishing = "furnished"
	p.LetDuration = "12 months"
	p.DesignerFurniture = domain.No
	p.HouseShares = "no"
	p.ConvenienceFeatures = []string{"gym", "parking", "lift"}
	p.IdealLivingEnvironment = "quiet"
	p.Pets = "cat"
	p.Smoker = domain.No
	p.MoveInDate = domain.DateOf(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))
	p.MaxBedrooms = domain.QuantityOf(3)
	p.MinBathrooms = domain.QuantityOf(1)
	p.MaxBathrooms = domain.QuantityOf(2)
	p.Hobbies = []string{"climbing", "chess", "running", "cooking"}
	p.AdditionalInfo = "Near a park please"
	p.DatePropertyAdded = domain.DateOf(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	return p
}

func TestCompletenessMaxScore(t *testing.T) {
	w := DefaultWeights().Completeness
	assert.InDelta(t, 29.0, w.MaxScore(), 1e-9)
}

func TestCompletenessEmptyRecord(t *testing.T) {
	res := DefaultWeights().Completeness.Score(domain.PreferenceRecord{})

	assert.Equal(t, 0, res.Percentage)
	assert.False(t, res.IsComplete)
	assert.Equal(t, 0, res.EssentialCount)
	assert.Equal(t, []string{"primary_postcode", "price_range", "min_bedrooms"}, res.MissingEssentials)
}

func TestCompletenessEssentialsOnly(t *testing.T) {
	res := DefaultWeights().Completeness.Score(essentialsOnly())

	// 9 of 29
	assert.Equal(t, 31, res.Percentage)
	assert.True(t, res.IsComplete)
	assert.Equal(t, 3, res.EssentialCount)
	assert.Empty(t, res.MissingEssentials)
}

func TestCompletenessFullRecord(t *testing.T) {
	res := DefaultWeights().Completeness.Score(fullPreferences())

	assert.Equal(t, 100, res.Percentage)
	assert.True(t, res.IsComplete)
}

func TestCompletenessTwoEssentialsNeverComplete(t *testing.T) {
	drop := map[string]func(*domain.PreferenceRecord){
		"postcode":     func(p *domain.PreferenceRecord) { p.PrimaryPostcode = "  " },
		"max price":    func(p *domain.PreferenceRecord) { p.MaxPrice = domain.Quantity{} },
		"min bedrooms": func(p *domain.PreferenceRecord) { p.MinBedrooms = domain.Quantity{} },
	}
	for name, fn := range drop {
		t.Run(name, func(t *testing.T) {
			p := fullPreferences()
			fn(&p)
			res := DefaultWeights().Completeness.Score(p)
			assert.False(t, res.IsComplete)
			assert.Equal(t, 2, res.EssentialCount)
			assert.Less(t, res.Percentage, 100)
		})
	}
}

func TestCompletenessPartialRanges(t *testing.T) {
	w := DefaultWeights().Completeness

	onlyMin := domain.PreferenceRecord{MinPrice: domain.QuantityOf(900)}
	// 1.5 of 29
	assert.Equal(t, 5, w.Score(onlyMin).Percentage)

	oneBath := domain.PreferenceRecord{MaxBathrooms: domain.QuantityOf(1)}
	// 0.5 of 29
	assert.Equal(t, 2, w.Score(oneBath).Percentage)
}

func TestCompletenessListCaps(t *testing.T) {
	w := DefaultWeights().Completeness

	two := domain.PreferenceRecord{ConvenienceFeatures: []string{"gym", "lift"}}
	many := domain.PreferenceRecord{ConvenienceFeatures: []string{"a", "b", "c", "d", "e", "f"}}
	// 1.0 and capped 1.5 of 29
	assert.Equal(t, 3, w.Score(two).Percentage)
	assert.Equal(t, 5, w.Score(many).Percentage)

	blank := domain.PreferenceRecord{Hobbies: []string{"", "  "}}
	assert.Equal(t, 0, w.Score(blank).Percentage)
}

func TestCompletenessTristateExplicitFalseCounts(t *testing.T) {
	w := DefaultWeights().Completeness

	unset := w.Score(domain.PreferenceRecord{})
	no := w.Score(domain.PreferenceRecord{DesignerFurniture: domain.No, Smoker: domain.No})

	// 2 + 1.5 of 29
	assert.Equal(t, 0, unset.Percentage)
	assert.Equal(t, 12, no.Percentage)
}

func TestCompletenessMalformedInputIsIgnored(t *testing.T) {
	raw := `{
		"primary_postcode": "E1",
		"min_price": "cheap",
		"max_price": 1500,
		"min_bedrooms": "2",
		"smoker": "sometimes",
		"move_in_date": "next week"
	}`
	var p domain.PreferenceRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	res := DefaultWeights().Completeness.Score(p)
	assert.False(t, res.IsComplete)
	assert.Equal(t, 2, res.EssentialCount)
	// 3 + 1.5 + 3 of 29
	assert.Equal(t, 26, res.Percentage)
}

func TestCompletenessPercentageBounds(t *testing.T) {
	records := []domain.PreferenceRecord{{}, essentialsOnly(), fullPreferences()}
	heavy := fullPreferences()
	heavy.Hobbies = make([]string, 100)
	for i := range heavy.Hobbies {
		heavy.Hobbies[i] = "x"
	}
	records = append(records, heavy)

	for _, p := range records {
		res := DefaultWeights().Completeness.Score(p)
		assert.GreaterOrEqual(t, res.Percentage, 0)
		assert.LessOrEqual(t, res.Percentage, 100)
	}
}
