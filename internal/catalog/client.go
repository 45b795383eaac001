package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
)

var (
	// ErrUpstream wraps any non-2xx answer or transport failure from the platform API.
	ErrUpstream = errors.New("upstream platform error")
	// ErrNotFound is returned when the platform has no record for the id.
	ErrNotFound = errors.New("not found upstream")
)

const (
	defaultPageSize = 50
	defaultMaxPages = 20
)

type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	PageSize   int
	MaxPages   int
	RetryCount int
}

// Query selects one page of the platform's property catalog. Page is 1-based.
type Query struct {
	Page   int
	Limit  int
	Search string
}

// Page is one page of the property catalog as served by the platform.
type Page struct {
	Properties []domain.Property `json:"properties"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Total      int               `json:"total"`
}

// pageWire defers listing decoding so one malformed entry cannot fail the page.
type pageWire struct {
	Properties []json.RawMessage `json:"properties"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Total      int               `json:"total"`
}

// Client reads tenant preferences and the property catalog from the platform API.
type Client struct {
	http     *resty.Client
	pageSize int
	maxPages int
	logger   *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}

	hc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		hc.SetAuthToken(cfg.Token)
	}

	return &Client{http: hc, pageSize: cfg.PageSize, maxPages: cfg.MaxPages, logger: logger}
}

func (c *Client) GetPreferences(ctx context.Context, userID string) (domain.PreferenceRecord, error) {
	var prefs domain.PreferenceRecord
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", userID).
		SetResult(&prefs).
		Get("/tenants/{id}/preferences")
	if err := c.check(resp, err, "get preferences"); err != nil {
		return domain.PreferenceRecord{}, err
	}
	if prefs.UserID == "" {
		prefs.UserID = userID
	}
	return prefs, nil
}

// ListProperties fetches a single catalog page.
func (c *Client) ListProperties(ctx context.Context, q Query) (Page, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = c.pageSize
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(q.Page)).
		SetQueryParam("limit", strconv.Itoa(q.Limit))
	if q.Search != "" {
		req.SetQueryParam("search", q.Search)
	}

	var wire pageWire
	resp, err := req.SetResult(&wire).Get("/properties")
	if err := c.check(resp, err, "list properties"); err != nil {
		return Page{}, err
	}
	props, skipped := domain.DecodeProperties(wire.Properties)
	if skipped > 0 {
		c.logger.Warn("skipped malformed listings", zap.Int("page", q.Page), zap.Int("skipped", skipped))
	}
	return Page{Properties: props, Page: wire.Page, TotalPages: wire.TotalPages, Total: wire.Total}, nil
}

// AllProperties walks the catalog page by page until the last page, an empty
// page or the page cap.
func (c *Client) AllProperties(ctx context.Context, search string) ([]domain.Property, error) {
	out := []domain.Property{}
	for n := 1; n <= c.maxPages; n++ {
		page, err := c.ListProperties(ctx, Query{Page: n, Limit: c.pageSize, Search: search})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Properties...)

		if len(page.Properties) == 0 || (page.TotalPages > 0 && n >= page.TotalPages) {
			return out, nil
		}
		if n == c.maxPages {
			c.logger.Warn("catalog truncated at page cap",
				zap.Int("max_pages", c.maxPages),
				zap.Int("total_pages", page.TotalPages),
				zap.Int("fetched", len(out)),
			)
		}
	}
	return out, nil
}

func (c *Client) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		c.logger.Error("platform API call failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w: %v", op, ErrUpstream, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if resp.IsError() {
		c.logger.Error("platform API returned error",
			zap.String("op", op),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("%s: %w: status %d", op, ErrUpstream, resp.StatusCode())
	}
	return nil
}
