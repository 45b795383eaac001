package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// PreferenceRecord is a tenant's saved search preferences. Every field is optional.
type PreferenceRecord struct {
	UserID string `json:"user_id"`

	PrimaryPostcode string   `json:"primary_postcode,omitempty"`
	MinPrice        Quantity `json:"min_price"`
	MaxPrice        Quantity `json:"max_price"`
	MinBedrooms     Quantity `json:"min_bedrooms"`
	MaxBedrooms     Quantity `json:"max_bedrooms"`
	MinBathrooms    Quantity `json:"min_bathrooms"`
	MaxBathrooms    Quantity `json:"max_bathrooms"`

	PropertyType      string   `json:"property_type,omitempty"`
	Furnishing        string   `json:"furnishing,omitempty"`
	LetDuration       string   `json:"let_duration,omitempty"`
	DesignerFurniture Tristate `json:"designer_furniture"`
	HouseShares       string   `json:"house_shares,omitempty"`

	ConvenienceFeatures []string `json:"convenience_features,omitempty"`
	LifestyleFeatures   []string `json:"lifestyle_features,omitempty"`
	SocialFeatures      []string `json:"social_features,omitempty"`
	WorkFeatures        []string `json:"work_features,omitempty"`
	PetFriendlyFeatures []string `json:"pet_friendly_features,omitempty"`
	LuxuryFeatures      []string `json:"luxury_features,omitempty"`

	IdealLivingEnvironment string   `json:"ideal_living_environment,omitempty"`
	Pets                   string   `json:"pets,omitempty"`
	Smoker                 Tristate `json:"smoker"`
	MoveInDate             Date     `json:"move_in_date"`
	Hobbies                []string `json:"hobbies,omitempty"`
	AdditionalInfo         string   `json:"additional_info,omitempty"`
	DatePropertyAdded      Date     `json:"date_property_added"`

	UpdatedAt time.Time `json:"updated_at"`
}

// WantedFeatures returns every feature tag across the feature groups,
// normalised and de-duplicated, in first-seen order.
func (p PreferenceRecord) WantedFeatures() []string {
	groups := [][]string{
		p.ConvenienceFeatures,
		p.LifestyleFeatures,
		p.SocialFeatures,
		p.WorkFeatures,
		p.PetFriendlyFeatures,
		p.LuxuryFeatures,
	}
	seen := make(map[string]struct{})
	var out []string
	for _, g := range groups {
		for _, f := range g {
			k := NormalizeTag(f)
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// Version fingerprints the record's content. UpdatedAt is excluded so that
// re-saving identical preferences keeps the same version.
func (p PreferenceRecord) Version() string {
	p.UpdatedAt = time.Time{}
	return fingerprint(p)
}

type Property struct {
	ID                string   `json:"id"`
	OperatorID        string   `json:"operator_id,omitempty"`
	Title             string   `json:"title"`
	Address           string   `json:"address,omitempty"`
	Postcode          string   `json:"postcode,omitempty"`
	Price             Quantity `json:"price"`
	Bedrooms          Quantity `json:"bedrooms"`
	Bathrooms         Quantity `json:"bathrooms"`
	PropertyType      string   `json:"property_type,omitempty"`
	Furnishing        string   `json:"furnishing,omitempty"`
	LifestyleFeatures []string `json:"lifestyle_features,omitempty"`
	Description       string   `json:"description,omitempty"`
	ImageURLs         []string `json:"image_urls,omitempty"`
	AvailableFrom     Date     `json:"available_from"`
	CreatedAt         Date     `json:"created_at"`
}

// Version fingerprints the listing's content.
func (p Property) Version() string {
	return fingerprint(p)
}

// CategoryScore is one category's contribution to a match score.
type CategoryScore struct {
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
	Credit   float64 `json:"credit"`
}

// MatchResult is derived on demand and never persisted.
type MatchResult struct {
	Property     Property        `json:"property"`
	MatchScore   int             `json:"matchScore"`
	MatchReasons []string        `json:"matchReasons"`
	Breakdown    []CategoryScore `json:"breakdown,omitempty"`
}

type CompletenessResult struct {
	Percentage        int      `json:"percentage"`
	IsComplete        bool     `json:"isComplete"`
	EssentialCount    int      `json:"essentialCount"`
	MissingEssentials []string `json:"missingEssentials,omitempty"`
}

// NormalizeTag lowercases a feature tag and collapses separators.
func NormalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func fingerprint(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
