package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
	"github.com/denisok6893-rgb/rental-matching/internal/matching"
	"github.com/denisok6893-rgb/rental-matching/internal/storage"
)

const maxBodyBytes = 1 << 20

// Store is the persistence the API needs; *storage.SQLiteStore satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	ListPropertiesFiltered(ctx context.Context, f storage.PropertyFilter) ([]domain.Property, int, error)
	AllProperties(ctx context.Context, search string) ([]domain.Property, error)
	GetProperty(ctx context.Context, id string) (domain.Property, error)
	CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error)
	DeleteProperty(ctx context.Context, id string) error
	GetPreferences(ctx context.Context, userID string) (domain.PreferenceRecord, error)
	SavePreferences(ctx context.Context, p domain.PreferenceRecord) (domain.PreferenceRecord, error)
}

// PreferenceSource is a fallback for tenants without stored preferences,
// e.g. the platform API client.
type PreferenceSource interface {
	GetPreferences(ctx context.Context, userID string) (domain.PreferenceRecord, error)
}

type Server struct {
	engine    *matching.Engine
	store     Store
	upstream  PreferenceSource
	logger    *zap.Logger
	workers   int
	rateLimit float64
	rateBurst int
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithUpstream(src PreferenceSource) Option {
	return func(s *Server) { s.upstream = src }
}

func WithWorkers(n int) Option {
	return func(s *Server) { s.workers = n }
}

func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) { s.rateLimit, s.rateBurst = rps, burst }
}

func NewServer(engine *matching.Engine, store Store, opts ...Option) *Server {
	s := &Server{engine: engine, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: s.handleHealth,
	}))
	mux.HandleFunc("/completeness", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: s.handleCompleteness,
	}))
	mux.HandleFunc("/match", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: s.handleMatch,
	}))
	mux.HandleFunc("/tenants/{id}/preferences", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: s.handlePreferencesGet,
		http.MethodPut: s.handlePreferencesPut,
	}))
	mux.HandleFunc("/tenants/{id}/matches", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: s.handleTenantMatches,
	}))
	mux.HandleFunc("/properties", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  s.handlePropertiesList,
		http.MethodPost: s.handlePropertiesCreate,
	}))
	mux.HandleFunc("/properties/{id}", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:    s.handlePropertiesGetByID,
		http.MethodDelete: s.handlePropertiesDelete,
	}))

	return Chain(mux,
		RequestID,
		Recover(s.logger),
		AccessLog(s.logger),
		RateLimit(s.rateLimit, s.rateBurst),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		WriteError(w, r, http.StatusServiceUnavailable, "unavailable", "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type CompletenessRequest struct {
	Preferences domain.PreferenceRecord `json:"preferences"`
}

func (s *Server) handleCompleteness(w http.ResponseWriter, r *http.Request) {
	var req CompletenessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Completeness(req.Preferences))
}

type MatchRequest struct {
	Preferences domain.PreferenceRecord `json:"preferences"`
	SortBy      string                  `json:"sort_by"`
	Direction   string                  `json:"direction"`
	Limit       int                     `json:"limit"`
	MinScore    int                     `json:"min_score"`
	Force       bool                    `json:"force"`
	Search      string                  `json:"search"`
}

func (req MatchRequest) options() matching.MatchOptions {
	key := matching.ParseSortKey(req.SortBy)
	return matching.MatchOptions{
		SortBy:    key,
		Direction: matching.ParseDirection(req.Direction, key),
		Limit:     req.Limit,
		MinScore:  req.MinScore,
		Force:     req.Force,
	}
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.runMatch(w, r, req)
}

func (s *Server) runMatch(w http.ResponseWriter, r *http.Request, req MatchRequest) {
	if req.Limit < 0 || req.MinScore < 0 || req.MinScore > 100 {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "limit must be >= 0 and min_score within 0..100")
		return
	}

	props, err := s.store.AllProperties(r.Context(), req.Search)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	opts := req.options()
	opts.Workers = s.workers
	report, err := s.engine.Match(r.Context(), req.Preferences, props, opts)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePreferencesGet(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.preferencesFor(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handlePreferencesPut(w http.ResponseWriter, r *http.Request) {
	var prefs domain.PreferenceRecord
	if !decodeBody(w, r, &prefs) {
		return
	}
	prefs.UserID = r.PathValue("id")

	saved, err := s.store.SavePreferences(r.Context(), prefs)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleTenantMatches(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.preferencesFor(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	q := r.URL.Query()
	req := MatchRequest{
		Preferences: prefs,
		SortBy:      q.Get("sort_by"),
		Direction:   q.Get("direction"),
		Search:      q.Get("search"),
		Limit:       queryInt(q.Get("limit"), 0),
		MinScore:    queryInt(q.Get("min_score"), 0),
	}
	req.Force, _ = strconv.ParseBool(q.Get("force"))
	s.runMatch(w, r, req)
}

// preferencesFor reads the stored record, falling back to the upstream source
// and caching what it returns.
func (s *Server) preferencesFor(ctx context.Context, userID string) (domain.PreferenceRecord, error) {
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err == nil || !errors.Is(err, storage.ErrNotFound) || s.upstream == nil {
		return prefs, err
	}

	prefs, err = s.upstream.GetPreferences(ctx, userID)
	if err != nil {
		return domain.PreferenceRecord{}, err
	}
	prefs.UserID = userID
	if saved, err := s.store.SavePreferences(ctx, prefs); err != nil {
		s.logger.Warn("cache upstream preferences", zap.String("user_id", userID), zap.Error(err))
	} else {
		prefs = saved
	}
	return prefs, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON")
		return false
	}
	return true
}

func queryInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
