package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"seatwise/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeES struct {
	mu      sync.Mutex
	indexed map[string]eventDocument
	queries []map[string]any
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/events-test":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && r.URL.Path == "/events-test/_doc/ev-1":
		var doc eventDocument
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.indexed[doc.ID] = doc
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result":"created"}`)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"result":"not_found"}`)
	case r.URL.Path == "/events-test/_search":
		var q map[string]any
		_ = json.NewDecoder(r.Body).Decode(&q)
		f.queries = append(f.queries, q)
		io.WriteString(w, `{"hits":{"hits":[{"_source":{"id":"ev-2"}},{"_source":{"id":"ev-1"}}]}}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"unexpected"}`)
	}
}

func newTestClient(t *testing.T) (*ElasticsearchClient, *fakeES) {
	fake := &fakeES{indexed: make(map[string]eventDocument)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewElasticsearchClient(context.Background(), Config{
		URL:     srv.URL,
		Index:   "events-test",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return c, fake
}

func TestIndexEvent(t *testing.T) {
	c, fake := newTestClient(t)

	event := &models.Event{
		ID:        "ev-1",
		Name:      "Go Meetup",
		EventDate: time.Date(2030, 5, 1, 18, 0, 0, 0, time.UTC),
		Venue:     models.Venue{Kind: models.VenueVirtual, Value: "https://meet.example.com/go"},
	}
	require.NoError(t, c.IndexEvent(context.Background(), event))

	doc := fake.indexed["ev-1"]
	assert.Equal(t, "Go Meetup", doc.Name)
	assert.Equal(t, "VIRTUAL", doc.VenueKind)
	assert.Equal(t, "https://meet.example.com/go", doc.OnlineLink)
	assert.Empty(t, doc.Location)
}

func TestSearchReturnsIDsInHitOrder(t *testing.T) {
	c, fake := newTestClient(t)

	ids, err := c.Search(context.Background(), "meetup", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"ev-2", "ev-1"}, ids)

	require.Len(t, fake.queries, 1)
	assert.EqualValues(t, 5, fake.queries[0]["size"])
	assert.Contains(t, fake.queries[0]["query"], "multi_match")
}

func TestDeleteMissingEventIsNotAnError(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.DeleteEvent(context.Background(), "ev-404"))
}

func TestBuildSearchQuery(t *testing.T) {
	assert.Contains(t, buildSearchQuery(""), "match_all")
	assert.Contains(t, buildSearchQuery("jazz"), "multi_match")
}
