package matching

import (
	"math"
	"strings"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
)

// essentialFields is how many essential fields must be present for matching.
const essentialFields = 3

// MaxScore is the sum of every weight in the table. It does not depend on
// which fields a record has set.
func (w CompletenessWeights) MaxScore() float64 {
	return 3*w.Essential + 4*w.Important + 4*w.Useful + 6*w.Optional
}

// Score rates how fully prefs has been filled in.
//
// Percentage is the weighted share of MaxScore. IsComplete is a separate gate
// based only on the essential fields (postcode, complete price range and
// minimum bedrooms), so a record can be complete well below 100%.
func (w CompletenessWeights) Score(prefs domain.PreferenceRecord) domain.CompletenessResult {
	var total float64
	var essentials int
	var missing []string

	// Essential
	if hasText(prefs.PrimaryPostcode) {
		total += w.Essential
		essentials++
	} else {
		missing = append(missing, "primary_postcode")
	}
	switch hasMin, hasMax := prefs.MinPrice.IsKnown(), prefs.MaxPrice.IsKnown(); {
	case hasMin && hasMax:
		total += w.Essential
		essentials++
	case hasMin || hasMax:
		total += w.Essential / 2
		missing = append(missing, "price_range")
	default:
		missing = append(missing, "price_range")
	}
	if prefs.MinBedrooms.IsKnown() {
		total += w.Essential
		essentials++
	} else {
		missing = append(missing, "min_bedrooms")
	}

	// Important
	total += w.Important * count(
		hasText(prefs.Furnishing),
		hasText(prefs.LetDuration),
		prefs.DesignerFurniture.IsSet(),
		hasText(prefs.HouseShares),
	)

	// Useful
	total += listCredit(prefs.ConvenienceFeatures, w.FeatureStep, w.Useful)
	total += w.Useful * count(
		hasText(prefs.IdealLivingEnvironment),
		hasText(prefs.Pets),
		prefs.Smoker.IsSet(),
	)

	// Optional
	total += w.Optional * count(
		prefs.MoveInDate.IsKnown(),
		prefs.MaxBedrooms.IsKnown(),
		hasText(prefs.AdditionalInfo),
		prefs.DatePropertyAdded.IsKnown(),
	)
	switch hasMin, hasMax := prefs.MinBathrooms.IsKnown(), prefs.MaxBathrooms.IsKnown(); {
	case hasMin && hasMax:
		total += w.Optional
	case hasMin || hasMax:
		total += w.Optional / 2
	}
	total += listCredit(prefs.Hobbies, w.HobbyStep, w.Optional)

	pct := 0
	if maxScore := w.MaxScore(); maxScore > 0 {
		pct = int(math.Round(clamp(total/maxScore*100, 0, 100)))
	}

	return domain.CompletenessResult{
		Percentage:        pct,
		IsComplete:        essentials >= essentialFields,
		EssentialCount:    essentials,
		MissingEssentials: missing,
	}
}

func listCredit(items []string, step, limit float64) float64 {
	n := 0
	for _, it := range items {
		if hasText(it) {
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Min(float64(n)*step, limit)
}

func count(flags ...bool) float64 {
	var n float64
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
