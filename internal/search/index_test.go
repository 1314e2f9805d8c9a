package search

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

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/models"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeCluster answers like Elasticsearch and records what it was sent.
type fakeCluster struct {
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(r *http.Request) (int, string)
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	f.mu.Unlock()

	status, payload := f.respond(r)
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func newTestIndex(t *testing.T, respond func(r *http.Request) (int, string)) (*Index, *fakeCluster) {
	t.Helper()
	cluster := &fakeCluster{respond: respond}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewIndex(client, "", logger.NewTestLogger(t)), cluster
}

func TestIndex_Index(t *testing.T) {
	idx, cluster := newTestIndex(t, func(*http.Request) (int, string) {
		return http.StatusCreated, `{"result":"created"}`
	})

	err := idx.Index(context.Background(), &models.Application{
		ID:        "a1b2",
		FullName:  "Sara Khan",
		Email:     "sara@example.com",
		LoanType:  "investment",
		Status:    models.StatusNewLead,
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, cluster.requests, 1)
	req := cluster.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/mortgage-applications/_doc/a1b2", req.Path)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(req.Body), &doc))
	assert.Equal(t, "Sara Khan", doc["fullName"])
	assert.Equal(t, "2025-01-02T03:04:05Z", doc["createdAt"])
	assert.NotContains(t, doc, "budgetRange")
}

func TestIndex_SearchIDs(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		payload        string
		expectedErr    error
		validateOutput func(t *testing.T, ids []string, cluster *fakeCluster)
	}{
		{
			name:    "hits in score order",
			status:  http.StatusOK,
			payload: `{"hits":{"total":{"value":2},"hits":[{"_id":"id-2"},{"_id":"id-1"}]}}`,
			validateOutput: func(t *testing.T, ids []string, cluster *fakeCluster) {
				assert.Equal(t, []string{"id-2", "id-1"}, ids)
				req := cluster.requests[0]
				assert.Equal(t, "/mortgage-applications/_search", req.Path)
				assert.Contains(t, req.Body, `"phrase_prefix"`)
				assert.Contains(t, req.Body, `"query":"sara"`)
			},
		},
		{
			name:    "no hits",
			status:  http.StatusOK,
			payload: `{"hits":{"hits":[]}}`,
			validateOutput: func(t *testing.T, ids []string, _ *fakeCluster) {
				assert.Empty(t, ids)
			},
		},
		{
			name:        "index missing",
			status:      http.StatusNotFound,
			payload:     `{"error":{"type":"index_not_found_exception"}}`,
			expectedErr: ErrSearchQueryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, cluster := newTestIndex(t, func(*http.Request) (int, string) { return tt.status, tt.payload })

			ids, err := idx.SearchIDs(context.Background(), "  sara ")
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, ids, cluster)
		})
	}
}

func TestIndex_EnsureIndex(t *testing.T) {
	t.Run("creates when missing", func(t *testing.T) {
		idx, cluster := newTestIndex(t, func(r *http.Request) (int, string) {
			if r.Method == http.MethodHead {
				return http.StatusNotFound, ""
			}
			return http.StatusOK, `{"acknowledged":true}`
		})
		require.NoError(t, idx.EnsureIndex(context.Background()))
		require.Len(t, cluster.requests, 2)
		assert.Equal(t, http.MethodPut, cluster.requests[1].Method)
		assert.Contains(t, cluster.requests[1].Body, `"mappings"`)
	})

	t.Run("existing index untouched", func(t *testing.T) {
		idx, cluster := newTestIndex(t, func(*http.Request) (int, string) { return http.StatusOK, "" })
		require.NoError(t, idx.EnsureIndex(context.Background()))
		assert.Len(t, cluster.requests, 1)
	})
}

func TestIndex_Delete(t *testing.T) {
	idx, cluster := newTestIndex(t, func(r *http.Request) (int, string) {
		if strings.HasSuffix(r.URL.Path, "/gone") {
			return http.StatusNotFound, `{"result":"not_found"}`
		}
		return http.StatusOK, `{"result":"deleted"}`
	})

	require.NoError(t, idx.Delete(context.Background(), []string{"kept", "gone"}))
	assert.Len(t, cluster.requests, 2)
}
