package matching

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidWeights is returned when a weights table breaks its constraints.
var ErrInvalidWeights = errors.New("invalid weights")

// CompletenessWeights is the per-tier weight table for preference completeness.
type CompletenessWeights struct {
	Essential float64 `yaml:"essential" json:"essential"`
	Important float64 `yaml:"important" json:"important"`
	Useful    float64 `yaml:"useful" json:"useful"`
	Optional  float64 `yaml:"optional" json:"optional"`
	// Per-item credit for feature and hobby lists, capped at the tier weight.
	FeatureStep float64 `yaml:"feature_step" json:"feature_step"`
	HobbyStep   float64 `yaml:"hobby_step" json:"hobby_step"`
}

// MatchWeights defines the relative importance of each match category.
type MatchWeights struct {
	Price        float64 `yaml:"price" json:"price"`
	Location     float64 `yaml:"location" json:"location"`
	Bedrooms     float64 `yaml:"bedrooms" json:"bedrooms"`
	Bathrooms    float64 `yaml:"bathrooms" json:"bathrooms"`
	Lifestyle    float64 `yaml:"lifestyle" json:"lifestyle"`
	PropertyType float64 `yaml:"property_type" json:"property_type"`
	Furnishing   float64 `yaml:"furnishing" json:"furnishing"`
	Availability float64 `yaml:"availability" json:"availability"`
}

// Tolerances control the graded falloff outside a preferred range.
type Tolerances struct {
	// PriceBand is the fraction of a price bound over which credit falls to zero.
	PriceBand float64 `yaml:"price_band" json:"price_band"`
	// RoomBand is the number of rooms outside the range over which credit falls to zero.
	RoomBand float64 `yaml:"room_band" json:"room_band"`
	// FeatureSaturation is the shared feature count that earns full lifestyle credit.
	FeatureSaturation int `yaml:"feature_saturation" json:"feature_saturation"`
	// AvailabilityGraceDays is how late after move-in a listing still earns credit.
	AvailabilityGraceDays int `yaml:"availability_grace_days" json:"availability_grace_days"`
}

type Weights struct {
	Completeness CompletenessWeights `yaml:"completeness" json:"completeness"`
	Match        MatchWeights        `yaml:"match" json:"match"`
	Tolerances   Tolerances          `yaml:"tolerances" json:"tolerances"`
}

// DefaultWeights returns the baseline tables.
func DefaultWeights() Weights {
	return Weights{
		Completeness: CompletenessWeights{
			Essential:   3,
			Important:   2,
			Useful:      1.5,
			Optional:    1,
			FeatureStep: 0.5,
			HobbyStep:   0.3,
		},
		Match: MatchWeights{
			Price:        30,
			Location:     25,
			Bedrooms:     20,
			Bathrooms:    5,
			Lifestyle:    10,
			PropertyType: 5,
			Furnishing:   5,
			Availability: 5,
		},
		Tolerances: Tolerances{
			PriceBand:             0.10,
			RoomBand:              2,
			FeatureSaturation:     5,
			AvailabilityGraceDays: 14,
		},
	}
}

// LoadWeightsFromFile overlays a YAML (or JSON) file onto the defaults.
// On any error the defaults are returned together with the error.
func LoadWeightsFromFile(path string) (Weights, error) {
	w := DefaultWeights()
	b, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read weights file: %w", err)
	}
	if err := yaml.Unmarshal(b, &w); err != nil {
		return DefaultWeights(), fmt.Errorf("unmarshal weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return DefaultWeights(), err
	}
	return w, nil
}

// Validate checks that weights are usable and that completeness tiers keep
// their order: essential > important > useful > optional.
// Version fingerprints the tables. Engines with equal weights share it.
func (w Weights) Version() string {
	b, err := json.Marshal(w)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

func (w Weights) Validate() error {
	c := w.Completeness
	if c.Essential <= 0 || c.Important <= 0 || c.Useful <= 0 || c.Optional <= 0 {
		return fmt.Errorf("%w: completeness tiers must be > 0", ErrInvalidWeights)
	}
	if !(c.Essential > c.Important && c.Important > c.Useful && c.Useful > c.Optional) {
		return fmt.Errorf("%w: completeness tiers must satisfy essential > important > useful > optional", ErrInvalidWeights)
	}
	if c.FeatureStep < 0 || c.HobbyStep < 0 {
		return fmt.Errorf("%w: list steps must be >= 0", ErrInvalidWeights)
	}

	m := w.Match
	for name, v := range map[string]float64{
		"price":         m.Price,
		"location":      m.Location,
		"bedrooms":      m.Bedrooms,
		"bathrooms":     m.Bathrooms,
		"lifestyle":     m.Lifestyle,
		"property_type": m.PropertyType,
		"furnishing":    m.Furnishing,
		"availability":  m.Availability,
	} {
		if v < 0 {
			return fmt.Errorf("%w: match.%s must be >= 0", ErrInvalidWeights, name)
		}
	}

	t := w.Tolerances
	if t.PriceBand < 0 || t.RoomBand < 0 || t.FeatureSaturation < 0 || t.AvailabilityGraceDays < 0 {
		return fmt.Errorf("%w: tolerances must be >= 0", ErrInvalidWeights)
	}
	return nil
}
