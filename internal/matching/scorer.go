package matching

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
)

// Match categories, in reason priority order.
const (
	CategoryPrice        = "price"
	CategoryLocation     = "location"
	CategoryBedrooms     = "bedrooms"
	CategoryBathrooms    = "bathrooms"
	CategoryLifestyle    = "lifestyle"
	CategoryPropertyType = "property_type"
	CategoryFurnishing   = "furnishing"
	CategoryAvailability = "availability"
)

// verdict is the outcome of one category comparison. A category that has no
// data on either side is skipped and does not enter the weighted average.
type verdict struct {
	skip   bool
	credit float64
	reason string
}

var skipped = verdict{skip: true}

type category struct {
	name   string
	weight float64
	eval   func(prefs domain.PreferenceRecord, p domain.Property) verdict
}

func (e *Engine) categories() []category {
	w, t := e.weights.Match, e.weights.Tolerances
	return []category{
		{CategoryPrice, w.Price, func(pr domain.PreferenceRecord, p domain.Property) verdict {
			return priceFit(pr, p, t.PriceBand)
		}},
		{CategoryLocation, w.Location, locationFit},
		{CategoryBedrooms, w.Bedrooms, func(pr domain.PreferenceRecord, p domain.Property) verdict {
			return roomFit(pr.MinBedrooms, pr.MaxBedrooms, p.Bedrooms, t.RoomBand, "bedroom")
		}},
		{CategoryBathrooms, w.Bathrooms, func(pr domain.PreferenceRecord, p domain.Property) verdict {
			return roomFit(pr.MinBathrooms, pr.MaxBathrooms, p.Bathrooms, t.RoomBand, "bathroom")
		}},
		{CategoryLifestyle, w.Lifestyle, func(pr domain.PreferenceRecord, p domain.Property) verdict {
			return lifestyleFit(pr, p, t.FeatureSaturation)
		}},
		{CategoryPropertyType, w.PropertyType, propertyTypeFit},
		{CategoryFurnishing, w.Furnishing, furnishingFit},
		{CategoryAvailability, w.Availability, func(pr domain.PreferenceRecord, p domain.Property) verdict {
			return availabilityFit(pr, p, t.AvailabilityGraceDays)
		}},
	}
}

// ScoreProperty computes a 0..100 match score and the reasons behind it.
// It is pure: inputs are not modified and equal inputs give equal results.
func (e *Engine) ScoreProperty(prefs domain.PreferenceRecord, p domain.Property) domain.MatchResult {
	var sumW, sum float64
	reasons := []string{}
	var breakdown []domain.CategoryScore

	for _, c := range e.categories() {
		if c.weight <= 0 {
			continue
		}
		v := c.eval(prefs, p)
		if v.skip {
			continue
		}
		credit := clamp01(v.credit)
		sumW += c.weight
		sum += c.weight * credit

		breakdown = append(breakdown, domain.CategoryScore{
			Category: c.name,
			Weight:   c.weight,
			Credit:   math.Round(credit*100) / 100,
		})
		if credit > 0 && v.reason != "" {
			reasons = append(reasons, v.reason)
		}
	}

	score := 0
	if sumW > 0 {
		score = int(math.Round(clamp(sum/sumW*100, 0, 100)))
	}

	return domain.MatchResult{
		Property:     p,
		MatchScore:   score,
		MatchReasons: reasons,
		Breakdown:    breakdown,
	}
}

func priceFit(prefs domain.PreferenceRecord, p domain.Property, band float64) verdict {
	price, ok := p.Price.Get()
	if !ok {
		return skipped
	}
	lo, hasLo := prefs.MinPrice.Get()
	hi, hasHi := prefs.MaxPrice.Get()
	if !hasLo && !hasHi {
		return skipped
	}
	if hasLo && hasHi && lo > hi {
		lo, hi = hi, lo
	}

	credit := rangeFit(price, lo, hasLo, hi, hasHi, lo*band, hi*band)
	return graded(credit, "Within your budget", "Close to your budget")
}

func roomFit(minQ, maxQ, have domain.Quantity, band float64, noun string) verdict {
	n, ok := have.Get()
	if !ok {
		return skipped
	}
	lo, hasLo := minQ.Get()
	hi, hasHi := maxQ.Get()
	if !hasLo && !hasHi {
		return skipped
	}
	if hasLo && hasHi && lo > hi {
		lo, hi = hi, lo
	}

	credit := rangeFit(n, lo, hasLo, hi, hasHi, band, band)
	return graded(credit, "Matches "+noun+" count", "Close to your "+noun+" count")
}

// rangeFit gives full credit inside [lo, hi] and falls off linearly to zero
// across the band on either side. A missing bound is open.
func rangeFit(v, lo float64, hasLo bool, hi float64, hasHi bool, bandBelow, bandAbove float64) float64 {
	switch {
	case hasLo && v < lo:
		return falloff(lo-v, bandBelow)
	case hasHi && v > hi:
		return falloff(v-hi, bandAbove)
	default:
		return 1
	}
}

func falloff(diff, band float64) float64 {
	if band <= 0 || diff >= band {
		return 0
	}
	return 1 - diff/band
}

func graded(credit float64, full, partial string) verdict {
	switch {
	case credit >= 1:
		return verdict{credit: 1, reason: full}
	case credit > 0:
		return verdict{credit: credit, reason: partial}
	default:
		return verdict{}
	}
}

var postcodeRe = regexp.MustCompile(`(?i)\b([A-Z]{1,2}[0-9][A-Z0-9]?)\s*([0-9][A-Z]{2})?\b`)

func locationFit(prefs domain.PreferenceRecord, p domain.Property) verdict {
	want := outwardCode(prefs.PrimaryPostcode)
	if want == "" {
		return skipped
	}
	have := outwardCode(p.Postcode)
	if have == "" {
		have = outwardCode(postcodeIn(p.Address))
	}
	if have == "" {
		return skipped
	}

	switch {
	case want == have:
		return verdict{credit: 1, reason: "In your preferred area"}
	case postcodeArea(want) != "" && postcodeArea(want) == postcodeArea(have):
		return verdict{credit: 0.5, reason: "Near your preferred area"}
	default:
		return verdict{}
	}
}

// outwardCode returns the district part of a postcode ("SW1A 1AA" -> "SW1A").
// Values that are already an outward code are returned normalised.
func outwardCode(pc string) string {
	s := strings.ToUpper(strings.Join(strings.Fields(pc), ""))
	if n := len(s); n >= 5 && isDigit(s[n-3]) && isLetter(s[n-2]) && isLetter(s[n-1]) {
		return s[:n-3]
	}
	return s
}

// postcodeArea returns the leading letters of an outward code ("SW1A" -> "SW").
func postcodeArea(outward string) string {
	i := 0
	for i < len(outward) && isLetter(outward[i]) {
		i++
	}
	return outward[:i]
}

func postcodeIn(address string) string {
	m := postcodeRe.FindAllStringSubmatch(address, -1)
	if len(m) == 0 {
		return ""
	}
	// Addresses end with the postcode; prefer the last candidate.
	last := m[len(m)-1]
	return last[1] + last[2]
}

func lifestyleFit(prefs domain.PreferenceRecord, p domain.Property, saturation int) verdict {
	wanted := prefs.WantedFeatures()
	if len(wanted) == 0 || len(p.LifestyleFeatures) == 0 {
		return skipped
	}
	have := make(map[string]struct{}, len(p.LifestyleFeatures))
	for _, f := range p.LifestyleFeatures {
		if k := domain.NormalizeTag(f); k != "" {
			have[k] = struct{}{}
		}
	}
	if len(have) == 0 {
		return skipped
	}

	shared := 0
	for _, f := range wanted {
		if _, ok := have[f]; ok {
			shared++
		}
	}
	if shared == 0 {
		return verdict{}
	}

	target := len(wanted)
	if saturation > 0 && saturation < target {
		target = saturation
	}
	reason := fmt.Sprintf("%d shared lifestyle features", shared)
	if shared == 1 {
		reason = "1 shared lifestyle feature"
	}
	return verdict{credit: float64(shared) / float64(target), reason: reason}
}

func propertyTypeFit(prefs domain.PreferenceRecord, p domain.Property) verdict {
	want := domain.NormalizeTag(prefs.PropertyType)
	have := domain.NormalizeTag(p.PropertyType)
	if want == "" || have == "" || isIndifferent(want) {
		return skipped
	}
	if want == have {
		return verdict{credit: 1, reason: "Preferred property type"}
	}
	return verdict{}
}

type furnishingKind int

const (
	furnishingUnknown furnishingKind = iota
	furnished
	partFurnished
	unfurnished
)

func parseFurnishing(s string) furnishingKind {
	s = strings.ReplaceAll(domain.NormalizeTag(s), " ", "")
	switch s {
	case "furnished", "fullyfurnished":
		return furnished
	case "partfurnished", "partlyfurnished", "partiallyfurnished", "semifurnished":
		return partFurnished
	case "unfurnished", "notfurnished":
		return unfurnished
	default:
		return furnishingUnknown
	}
}

func furnishingFit(prefs domain.PreferenceRecord, p domain.Property) verdict {
	if isIndifferent(domain.NormalizeTag(prefs.Furnishing)) {
		return skipped
	}
	want, have := parseFurnishing(prefs.Furnishing), parseFurnishing(p.Furnishing)
	if want == furnishingUnknown || have == furnishingUnknown {
		return skipped
	}
	switch {
	case want == have:
		return verdict{credit: 1, reason: "Matches furnishing preference"}
	case want == partFurnished || have == partFurnished:
		return verdict{credit: 0.5, reason: "Partly matches furnishing preference"}
	default:
		return verdict{}
	}
}

func availabilityFit(prefs domain.PreferenceRecord, p domain.Property, graceDays int) verdict {
	if !prefs.MoveInDate.IsKnown() || !p.AvailableFrom.IsKnown() {
		return skipped
	}
	late := p.AvailableFrom.Sub(prefs.MoveInDate.Time)
	if late <= 0 {
		return verdict{credit: 1, reason: "Available by your move-in date"}
	}
	grace := time.Duration(graceDays) * 24 * time.Hour
	credit := falloff(float64(late), float64(grace))
	if credit <= 0 {
		return verdict{}
	}
	return verdict{credit: credit, reason: "Available shortly after your move-in date"}
}

func isIndifferent(s string) bool {
	switch s {
	case "any", "either", "flexible", "no preference", "dont mind", "don't mind":
		return true
	}
	return false
}

func isDigit(b byte) bool  { return b >= '0' && b <= '9' }
func isLetter(b byte) bool { return b >= 'A' && b <= 'Z' }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
