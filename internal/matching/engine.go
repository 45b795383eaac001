package matching

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
)

// ResultCache stores scored results keyed by a scoring version and property.
// The scoring version changes whenever the preferences or the weights do.
// Implementations must be safe for concurrent use.
type ResultCache interface {
	Lookup(ctx context.Context, scoringVersion string, p domain.Property) (domain.MatchResult, bool, error)
	Store(ctx context.Context, scoringVersion string, res domain.MatchResult) error
}

type Engine struct {
	weights        Weights
	weightsVersion string
	cache          ResultCache
	logger         *zap.Logger
}

type Option func(*Engine)

// WithCache makes Match read and write scored results through c.
func WithCache(c ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(w Weights, opts ...Option) *Engine {
	e := &Engine{weights: w, weightsVersion: w.Version(), logger: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Weights returns the tables the engine scores with.
func (e *Engine) Weights() Weights { return e.weights }

// Completeness scores prefs against the engine's completeness table.
func (e *Engine) Completeness(prefs domain.PreferenceRecord) domain.CompletenessResult {
	return e.weights.Completeness.Score(prefs)
}

type MatchOptions struct {
	SortBy    SortKey
	Direction Direction
	// Limit caps the number of returned matches; 0 means no cap.
	Limit    int
	MinScore int
	// Force scores even when the preferences are not complete.
	Force   bool
	Workers int
}

type MatchReport struct {
	Completeness domain.CompletenessResult `json:"completeness"`
	// Gated is true when scoring was not run because preferences are incomplete.
	Gated   bool                 `json:"gated"`
	Scored  int                  `json:"scored"`
	Total   int                  `json:"total"`
	Matches []domain.MatchResult `json:"matches"`
}

// Match gates on completeness, scores every property, filters by MinScore,
// ranks and truncates.
func (e *Engine) Match(ctx context.Context, prefs domain.PreferenceRecord, properties []domain.Property, opts MatchOptions) (MatchReport, error) {
	report := MatchReport{
		Completeness: e.Completeness(prefs),
		Matches:      []domain.MatchResult{},
	}
	if !report.Completeness.IsComplete && !opts.Force {
		report.Gated = true
		e.logger.Debug("matching gated on incomplete preferences",
			zap.String("user_id", prefs.UserID),
			zap.Int("essential_count", report.Completeness.EssentialCount),
		)
		return report, nil
	}

	results, err := e.scoreAll(ctx, prefs, properties, opts.Workers)
	if err != nil {
		return report, err
	}
	report.Scored = len(results)

	kept := results[:0]
	for _, r := range results {
		if r.MatchScore >= opts.MinScore {
			kept = append(kept, r)
		}
	}

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = SortByScore
	}
	ranked := Rank(kept, sortBy, opts.Direction)
	report.Total = len(ranked)
	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	report.Matches = ranked

	e.logger.Debug("matching done",
		zap.String("user_id", prefs.UserID),
		zap.Int("candidates", len(properties)),
		zap.Int("matched", report.Total),
	)
	return report, nil
}

func (e *Engine) scoreAll(ctx context.Context, prefs domain.PreferenceRecord, properties []domain.Property, workers int) ([]domain.MatchResult, error) {
	out := make([]domain.MatchResult, len(properties))
	if len(properties) == 0 {
		return out, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	version := e.weightsVersion + "." + prefs.Version()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range properties {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = e.scoreCached(gctx, version, prefs, properties[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) scoreCached(ctx context.Context, version string, prefs domain.PreferenceRecord, p domain.Property) domain.MatchResult {
	if e.cache == nil {
		return e.ScoreProperty(prefs, p)
	}

	res, ok, err := e.cache.Lookup(ctx, version, p)
	if err != nil {
		e.logger.Warn("match cache lookup failed", zap.String("property_id", p.ID), zap.Error(err))
	}
	if ok {
		return res
	}

	res = e.ScoreProperty(prefs, p)
	if err := e.cache.Store(ctx, version, res); err != nil {
		e.logger.Warn("match cache store failed", zap.String("property_id", p.ID), zap.Error(err))
	}
	return res
}
