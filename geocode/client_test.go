package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"immograph/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLogger(utils.LevelError) }

func testClient(baseURL string) *Client {
	return NewClient(baseURL, "ops@example.org", 2*time.Second, 0, 1, newTestLogger())
}

func TestSearchParsesTopMatch(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`[{"osm_id": 123456, "lat": "48.1989", "lon": "16.3534"}]`))
	}))
	defer srv.Close()

	res, err := testClient(srv.URL).Search(context.Background(), "Neubaugasse 10")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.PlaceID != "123456" {
		t.Errorf("place id = %q; want %q", res.PlaceID, "123456")
	}
	if res.Lat != 48.1989 || res.Lon != 16.3534 {
		t.Errorf("coords = %g, %g; want 48.1989, 16.3534", res.Lat, res.Lon)
	}
	if gotQuery != "Neubaugasse 10" {
		t.Errorf("query = %q; want the raw location", gotQuery)
	}
	if gotUA == "" {
		t.Error("requests must carry an identifying User-Agent")
	}
}

func TestSearchNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	res, err := testClient(srv.URL).Search(context.Background(), "Erfundene Straße 99")
	if err != nil {
		t.Fatalf("no match must not be an error, got %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
}

func TestSearchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Search(context.Background(), "x"); err == nil {
		t.Error("non-success status must surface as an error")
	}
}

func TestSearchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 20*time.Millisecond, 0, 1, newTestLogger())
	if _, err := c.Search(context.Background(), "x"); err == nil {
		t.Error("a request exceeding the bounded timeout must fail")
	}
}

func TestSearchRetriesTransportErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"osm_id": 1, "lat": "48.0", "lon": "16.0"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 2*time.Second, 0, 3, newTestLogger())
	res, err := c.Search(context.Background(), "x")
	if err != nil {
		t.Fatalf("search failed after retry: %v", err)
	}
	if res == nil || res.PlaceID != "1" {
		t.Errorf("unexpected result %+v", res)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d; want 2", attempts)
	}
}

func TestReverseParsesPlace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("path = %q; want /reverse", r.URL.Path)
		}
		w.Write([]byte(`{"osm_id": 777, "lat": "48.2", "lon": "16.37"}`))
	}))
	defer srv.Close()

	res, err := testClient(srv.URL).Reverse(context.Background(), 48.2, 16.37)
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if res == nil || res.PlaceID != "777" {
		t.Errorf("unexpected result %+v", res)
	}
}
