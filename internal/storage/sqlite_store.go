package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
)

// ErrNotFound is returned when a property or preference record does not exist.
var ErrNotFound = errors.New("not found")

const propertyColumns = `id, operator_id, title, address, postcode, price, bedrooms, bathrooms,
property_type, furnishing, description, image_urls_json, lifestyle_features_json, available_from, created_at`

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`PRAGMA busy_timeout=5000;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an existing handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS properties (
  id TEXT PRIMARY KEY,
  operator_id TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  postcode TEXT NOT NULL DEFAULT '',
  price REAL,
  bedrooms REAL,
  bathrooms REAL,
  property_type TEXT NOT NULL DEFAULT '',
  furnishing TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  image_urls_json TEXT NOT NULL DEFAULT '[]',
  lifestyle_features_json TEXT NOT NULL DEFAULT '[]',
  available_from TEXT,
  created_at TEXT
);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_postcode ON properties(postcode);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_price ON properties(price);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_created_at ON properties(created_at);`,
		`CREATE TABLE IF NOT EXISTS preferences (
  user_id TEXT PRIMARY KEY,
  data_json TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) CountProperties(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties`).Scan(&n)
	return n, err
}

// UpsertMany inserts a dataset without duplicating by id. Listings without an
// id get a fresh one.
func (s *SQLiteStore) UpsertMany(ctx context.Context, items []domain.Property) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO properties (`+propertyColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, p := range items {
		res, err := stmt.ExecContext(ctx, propertyArgs(withDefaults(p))...)
		if err != nil {
			return 0, fmt.Errorf("insert property %q: %w", p.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, tx.Commit()
}

func (s *SQLiteStore) CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	p = withDefaults(p)
	_, err := s.db.ExecContext(ctx, `INSERT INTO properties (`+propertyColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, propertyArgs(p)...)
	if err != nil {
		return domain.Property{}, fmt.Errorf("create property: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) DeleteProperty(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, ErrNotFound
	}
	if err != nil {
		return domain.Property{}, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

// PropertyFilter narrows a catalog listing. Zero values mean "no filter".
type PropertyFilter struct {
	Limit       int
	Offset      int
	Search      string
	MinPrice    float64
	MaxPrice    float64
	MinBedrooms float64
	// Sort is one of price_asc, price_desc, newest; anything else orders by id.
	Sort string
}

// ListPropertiesFiltered returns one page of matching listings and the total
// count for the same filter.
func (s *SQLiteStore) ListPropertiesFiltered(ctx context.Context, f PropertyFilter) ([]domain.Property, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	whereSQL, args := buildWhere(f)

	orderSQL := "ORDER BY id"
	switch f.Sort {
	case "price_asc":
		orderSQL = "ORDER BY price ASC, id"
	case "price_desc":
		orderSQL = "ORDER BY price DESC, id"
	case "newest":
		orderSQL = "ORDER BY created_at DESC, id"
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM properties "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}

	rowsSQL := "SELECT " + propertyColumns + " FROM properties " + whereSQL + "\n" + orderSQL + "\nLIMIT ? OFFSET ?"
	rowsArgs := append(append([]any{}, args...), f.Limit, f.Offset)

	out, err := s.queryProperties(ctx, rowsSQL, rowsArgs...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AllProperties returns every listing matching the free-text search, in id order.
func (s *SQLiteStore) AllProperties(ctx context.Context, search string) ([]domain.Property, error) {
	whereSQL, args := buildWhere(PropertyFilter{Search: search})
	return s.queryProperties(ctx, "SELECT "+propertyColumns+" FROM properties "+whereSQL+"\nORDER BY id", args...)
}

func buildWhere(f PropertyFilter) (string, []any) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if q := strings.TrimSpace(f.Search); q != "" {
		// contains, case-insensitive
		where = append(where, "LOWER(title || ' ' || address || ' ' || postcode) LIKE '%' || LOWER(?) || '%'")
		args = append(args, q)
	}
	if f.MinPrice > 0 {
		where = append(where, "price >= ?")
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		where = append(where, "price <= ?")
		args = append(args, f.MaxPrice)
	}
	if f.MinBedrooms > 0 {
		where = append(where, "bedrooms >= ?")
		args = append(args, f.MinBedrooms)
	}

	if len(where) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

func (s *SQLiteStore) queryProperties(ctx context.Context, query string, args ...any) ([]domain.Property, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	out := []domain.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SavePreferences replaces the tenant's record and stamps UpdatedAt.
func (s *SQLiteStore) SavePreferences(ctx context.Context, p domain.PreferenceRecord) (domain.PreferenceRecord, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return domain.PreferenceRecord{}, errors.New("save preferences: user_id is required")
	}
	p.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	b, err := json.Marshal(p)
	if err != nil {
		return domain.PreferenceRecord{}, fmt.Errorf("marshal preferences: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO preferences (user_id, data_json, updated_at) VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET data_json = excluded.data_json, updated_at = excluded.updated_at
`, p.UserID, string(b), p.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return domain.PreferenceRecord{}, fmt.Errorf("save preferences: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (domain.PreferenceRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data_json FROM preferences WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PreferenceRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.PreferenceRecord{}, fmt.Errorf("get preferences: %w", err)
	}

	var p domain.PreferenceRecord
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return domain.PreferenceRecord{}, fmt.Errorf("decode preferences: %w", err)
	}
	p.UserID = userID
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(r rowScanner) (domain.Property, error) {
	var p domain.Property
	var imgJSON, featJSON string
	if err := r.Scan(
		&p.ID, &p.OperatorID, &p.Title, &p.Address, &p.Postcode, &p.Price, &p.Bedrooms, &p.Bathrooms,
		&p.PropertyType, &p.Furnishing, &p.Description, &imgJSON, &featJSON, &p.AvailableFrom, &p.CreatedAt,
	); err != nil {
		return domain.Property{}, err
	}
	if err := json.Unmarshal([]byte(imgJSON), &p.ImageURLs); err != nil {
		return domain.Property{}, fmt.Errorf("decode image_urls_json: %w", err)
	}
	if err := json.Unmarshal([]byte(featJSON), &p.LifestyleFeatures); err != nil {
		return domain.Property{}, fmt.Errorf("decode lifestyle_features_json: %w", err)
	}
	return p, nil
}

func propertyArgs(p domain.Property) []any {
	img, _ := json.Marshal(nonNil(p.ImageURLs))
	feat, _ := json.Marshal(nonNil(p.LifestyleFeatures))
	return []any{
		p.ID, p.OperatorID, p.Title, p.Address, p.Postcode, p.Price, p.Bedrooms, p.Bathrooms,
		p.PropertyType, p.Furnishing, p.Description, string(img), string(feat), p.AvailableFrom, p.CreatedAt,
	}
}

func withDefaults(p domain.Property) domain.Property {
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	if !p.CreatedAt.IsKnown() {
		p.CreatedAt = domain.DateOf(time.Now().Truncate(time.Second))
	}
	return p
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
