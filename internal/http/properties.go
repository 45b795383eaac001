package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
	"github.com/denisok6893-rgb/rental-matching/internal/storage"
)

type PropertySummary struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Address      string          `json:"address,omitempty"`
	Postcode     string          `json:"postcode,omitempty"`
	Price        domain.Quantity `json:"price"`
	Bedrooms     domain.Quantity `json:"bedrooms"`
	Bathrooms    domain.Quantity `json:"bathrooms"`
	PropertyType string          `json:"property_type,omitempty"`
	Furnishing   string          `json:"furnishing,omitempty"`
	CreatedAt    domain.Date     `json:"created_at"`
}

type PropertiesListResponse struct {
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Total  int               `json:"total"`
	Items  []PropertySummary `json:"items"`
}

func (s *Server) handlePropertiesList(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 20, 0)
	q := r.URL.Query()

	minPrice, _ := strconv.ParseFloat(q.Get("min_price"), 64)
	maxPrice, _ := strconv.ParseFloat(q.Get("max_price"), 64)
	minBedrooms, _ := strconv.ParseFloat(q.Get("min_bedrooms"), 64)

	props, total, err := s.store.ListPropertiesFiltered(r.Context(), storage.PropertyFilter{
		Limit:       limit,
		Offset:      offset,
		Search:      q.Get("search"),
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		MinBedrooms: minBedrooms,
		Sort:        q.Get("sort"),
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	items := make([]PropertySummary, 0, len(props))
	for _, p := range props {
		items = append(items, PropertySummary{
			ID:           p.ID,
			Title:        p.Title,
			Address:      p.Address,
			Postcode:     p.Postcode,
			Price:        p.Price,
			Bedrooms:     p.Bedrooms,
			Bathrooms:    p.Bathrooms,
			PropertyType: p.PropertyType,
			Furnishing:   p.Furnishing,
			CreatedAt:    p.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, PropertiesListResponse{
		Limit:  limit,
		Offset: offset,
		Total:  total,
		Items:  items,
	})
}

func (s *Server) handlePropertiesGetByID(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProperty(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePropertiesDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProperty(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type CreatePropertyRequest struct {
	OperatorID        string          `json:"operator_id"`
	Title             string          `json:"title"`
	Address           string          `json:"address"`
	Postcode          string          `json:"postcode"`
	Price             domain.Quantity `json:"price"`
	Bedrooms          domain.Quantity `json:"bedrooms"`
	Bathrooms         domain.Quantity `json:"bathrooms"`
	PropertyType      string          `json:"property_type"`
	Furnishing        string          `json:"furnishing"`
	LifestyleFeatures []string        `json:"lifestyle_features"`
	Description       string          `json:"description"`
	ImageURLs         []string        `json:"image_urls"`
	AvailableFrom     domain.Date     `json:"available_from"`
}

func (s *Server) handlePropertiesCreate(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// minimal validation
	if strings.TrimSpace(req.Title) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}
	if strings.TrimSpace(req.Postcode) == "" && strings.TrimSpace(req.Address) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "postcode or address is required")
		return
	}
	if price, ok := req.Price.Get(); !ok || price <= 0 {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "price must be > 0")
		return
	}

	p, err := s.store.CreateProperty(r.Context(), domain.Property{
		OperatorID:        req.OperatorID,
		Title:             req.Title,
		Address:           req.Address,
		Postcode:          strings.ToUpper(strings.TrimSpace(req.Postcode)),
		Price:             req.Price,
		Bedrooms:          req.Bedrooms,
		Bathrooms:         req.Bathrooms,
		PropertyType:      req.PropertyType,
		Furnishing:        req.Furnishing,
		LifestyleFeatures: req.LifestyleFeatures,
		Description:       req.Description,
		ImageURLs:         req.ImageURLs,
		AvailableFrom:     req.AvailableFrom,
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func parseLimitOffset(r *http.Request, defLimit, defOffset int) (int, int) {
	q := r.URL.Query()

	limit := queryInt(q.Get("limit"), defLimit)
	if limit <= 0 {
		limit = defLimit
	}
	// safety cap
	if limit > 200 {
		limit = 200
	}

	offset := queryInt(q.Get("offset"), defOffset)
	if offset < 0 {
		offset = defOffset
	}

	return limit, offset
}
