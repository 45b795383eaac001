package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/denisok6893-rgb/rental-matching/internal/matching"
	"github.com/denisok6893-rgb/rental-matching/internal/storage"
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *storage.SQLiteStore) {
	t.Helper()

	st, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	srv := NewServer(matching.NewEngine(matching.DefaultWeights()), st, opts...)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, st
}

type createReq struct {
	Title     string   `json:"title"`
	Address   string   `json:"address"`
	Postcode  string   `json:"postcode"`
	Price     any      `json:"price"`
	Bedrooms  int      `json:"bedrooms"`
	Bathrooms int      `json:"bathrooms"`
	Features  []string `json:"lifestyle_features,omitempty"`
}

func postProperty(t *testing.T, baseURL string, r createReq) string {
	t.Helper()
	b, _ := json.Marshal(r)
	resp, err := http.Post(baseURL+"/properties", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST /properties: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /properties status=%d", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return created.ID
}

func TestGETProperties_FiltersAndSort(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	// 3 listings
	postProperty(t, ts.URL, createReq{Title: "A", Address: "Camden Road, London", Postcode: "nw1 9ab", Price: 1500, Bedrooms: 2, Bathrooms: 1})
	postProperty(t, ts.URL, createReq{Title: "B", Address: "camden lock", Postcode: "NW1 8AF", Price: "£2,400", Bedrooms: 3, Bathrooms: 2})
	postProperty(t, ts.URL, createReq{Title: "C", Address: "Shoreditch", Postcode: "E1 6JE", Price: 2600, Bedrooms: 3, Bathrooms: 2})

	// search contains (case-insensitive), min_price, min_bedrooms, sort desc
	resp, err := http.Get(ts.URL + "/properties?search=CAMDEN&min_price=2000&min_bedrooms=3&sort=price_desc&limit=20&offset=0")
	if err != nil {
		t.Fatalf("GET /properties: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /properties status=%d", resp.StatusCode)
	}

	var got struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
		Total  int `json:"total"`
		Items  []struct {
			ID       string  `json:"id"`
			Title    string  `json:"title"`
			Postcode string  `json:"postcode"`
			Price    float64 `json:"price"`
			Bedrooms float64 `json:"bedrooms"`
		} `json:"items"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Total != 1 {
		t.Fatalf("total=%d want=1", got.Total)
	}
	if len(got.Items) != 1 {
		t.Fatalf("items=%d want=1", len(got.Items))
	}
	if got.Items[0].Title != "B" {
		t.Fatalf("first title=%q want=%q", got.Items[0].Title, "B")
	}
	if got.Items[0].Price != 2400 {
		t.Fatalf("price=%v want=2400", got.Items[0].Price)
	}
}

func TestProperties_GetAndDelete(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)
	id := postProperty(t, ts.URL, createReq{Title: "A", Postcode: "SW1A 1AA", Price: 1500})

	resp, err := http.Get(ts.URL + "/properties/" + id)
	if err != nil {
		t.Fatalf("GET /properties/{id}: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status=%d", resp.StatusCode)
	}

	del := func() int {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/properties/"+id, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("DELETE: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if code := del(); code != http.StatusOK {
		t.Fatalf("DELETE status=%d", code)
	}
	if code := del(); code != http.StatusNotFound {
		t.Fatalf("second DELETE status=%d want=404", code)
	}
}

func TestPOSTProperties_Validation(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	cases := []createReq{
		{Postcode: "E1", Price: 1000},
		{Title: "no location", Price: 1000},
		{Title: "no price", Postcode: "E1"},
		{Title: "bad price", Postcode: "E1", Price: "POA"},
	}
	for _, c := range cases {
		b, _ := json.Marshal(c)
		resp, err := http.Post(ts.URL+"/properties", "application/json", bytes.NewReader(b))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		var apiErr APIError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%q: status=%d want=400", c.Title, resp.StatusCode)
		}
		if apiErr.Error.Code != "invalid_request" || apiErr.Error.RequestID == "" {
			t.Fatalf("%q: error=%+v", c.Title, apiErr.Error)
		}
	}
}
