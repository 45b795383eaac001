package matching

import (
	"sort"
	"strings"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
)

// SortKey selects what Rank orders by.
type SortKey string

const (
	SortByScore SortKey = "score"
	SortByPrice SortKey = "price"
	SortByDate  SortKey = "date"
)

// Direction is the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseSortKey maps user input to a SortKey, defaulting to score.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortByPrice:
		return SortByPrice
	case SortByDate:
		return SortByDate
	default:
		return SortByScore
	}
}

// ParseDirection maps user input to a Direction, defaulting to the key's
// natural direction.
func ParseDirection(s string, key SortKey) Direction {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc
	case Desc:
		return Desc
	default:
		return key.NaturalDirection()
	}
}

// NaturalDirection is best score first, cheapest first, newest first.
func (k SortKey) NaturalDirection() Direction {
	if k == SortByPrice {
		return Asc
	}
	return Desc
}

// Rank returns a sorted copy of results. The sort is stable, so results with
// equal keys keep their input order. Unknown prices and dates compare as 0.
func Rank(results []domain.MatchResult, sortBy SortKey, dir Direction) []domain.MatchResult {
	out := make([]domain.MatchResult, len(results))
	copy(out, results)
	if len(out) < 2 {
		return out
	}
	if dir != Asc && dir != Desc {
		dir = sortBy.NaturalDirection()
	}

	key := sortValue(sortBy)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := key(out[i]), key(out[j])
		if dir == Asc {
			return a < b
		}
		return a > b
	})
	return out
}

func sortValue(k SortKey) func(domain.MatchResult) float64 {
	switch k {
	case SortByPrice:
		return func(r domain.MatchResult) float64 { return r.Property.Price.Or(0) }
	case SortByDate:
		return func(r domain.MatchResult) float64 { return float64(r.Property.CreatedAt.Unix()) }
	default:
		return func(r domain.MatchResult) float64 { return float64(r.MatchScore) }
	}
}
