package elasticsearch_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phpscreening/screener/internal/elasticsearch"
	"github.com/phpscreening/screener/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
	deleted  []int
	down     bool
}

func (f *fakeES) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	var next int
	if strings.HasSuffix(r.URL.Path, "/_delete_by_query") && len(f.deleted) > 0 {
		next, f.deleted = f.deleted[0], f.deleted[1:]
	}
	down := f.down
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/_cluster/health" && down:
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "master_not_discovered"})
	case r.URL.Path == "/_cluster/health":
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "green"})
	case strings.HasSuffix(r.URL.Path, "/_delete_by_query"):
		_ = json.NewEncoder(w).Encode(map[string]any{"deleted": next})
	default:
		_ = json.NewEncoder(w).Encode(map[string]any{"result": "created"})
	}
}

func newClient(t *testing.T, f *fakeES) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(srv.Close)

	c, err := elasticsearch.New(srv.URL, "screening-events", nil)
	require.NoError(t, err)
	return c
}

func TestIndexEvent(t *testing.T) {
	f := &fakeES{}
	c := newClient(t, f)

	ev := models.ReviewEvent{
		ID:          "evt-1",
		Type:        models.EventJudged,
		CandidateID: "PHP-001",
		Status:      models.StatusKept,
		Timestamp:   time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
	}
	require.NoError(t, c.IndexEvent(context.Background(), ev))

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, []string{"PUT /screening-events/_doc/evt-1"}, f.requests)
	require.Contains(t, f.bodies[0], `"candidate_id":"PHP-001"`)
}

func TestDeleteOlderThanLoopsUntilShortBatch(t *testing.T) {
	f := &fakeES{deleted: []int{10, 10, 3}}
	c := newClient(t, f)

	total, err := c.DeleteOlderThan(context.Background(), time.Hour, 10)
	require.NoError(t, err)
	require.Equal(t, int64(23), total)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.requests, 3)
	require.Contains(t, f.bodies[0], `"timestamp"`)
}

func TestHealth(t *testing.T) {
	f := &fakeES{}
	c := newClient(t, f)
	require.NoError(t, c.Health(context.Background()))

	f.mu.Lock()
	f.down = true
	f.mu.Unlock()
	err := c.Health(context.Background())
	require.ErrorContains(t, err, "master_not_discovered")
}
