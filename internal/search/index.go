// Package search keeps an Elasticsearch index of applications for the admin
// free-text search.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/models"
)

const DefaultIndex = "mortgage-applications"

// maxHits caps how many ids a search resolves.
const maxHits = 1000

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrIndexFailed       = errors.New("SEARCH_INDEX_FAILED")
)

var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":          map[string]interface{}{"type": "keyword"},
			"fullName":    map[string]interface{}{"type": "text"},
			"email":       map[string]interface{}{"type": "text", "fields": map[string]interface{}{"raw": map[string]interface{}{"type": "keyword"}}},
			"phoneNumber": map[string]interface{}{"type": "text"},
			"loanType":    map[string]interface{}{"type": "keyword"},
			"budgetRange": map[string]interface{}{"type": "keyword"},
			"status":      map[string]interface{}{"type": "keyword"},
			"createdAt":   map[string]interface{}{"type": "date"},
		},
	},
}

// document is the indexed projection of an application.
type document struct {
	ID          string    `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	LoanType    string    `json:"loanType"`
	BudgetRange string    `json:"budgetRange,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Index struct {
	client *elasticsearch.Client
	name   string
	logger logger.Logger
}

func NewIndex(client *elasticsearch.Client, name string, log logger.Logger) *Index {
	if name == "" {
		name = DefaultIndex
	}
	return &Index{client: client, name: name, logger: logger.Component(log, "search-index")}
}

func (i *Index) Name() string { return i.name }

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.name}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: exists: %v", ErrIndexFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := json.Marshal(indexMapping)
	res, err = i.client.Indices.Create(i.name,
		i.client.Indices.Create.WithBody(bytes.NewReader(body)),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: create: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(readBody(res), "resource_already_exists_exception") {
		return fmt.Errorf("%w: create: %s", ErrIndexFailed, res.Status())
	}
	i.logger.Info("search index created", map[string]interface{}{"index": i.name})
	return nil
}

// Index upserts app into the index.
func (i *Index) Index(ctx context.Context, app *models.Application) error {
	body, err := json.Marshal(document{
		ID:          app.ID,
		FullName:    app.FullName,
		Email:       app.Email,
		PhoneNumber: app.PhoneNumber,
		LoanType:    app.LoanType,
		BudgetRange: app.BudgetRange,
		Status:      app.Status,
		CreatedAt:   app.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrIndexFailed, err)
	}

	req := esapi.IndexRequest{
		Index:      i.name,
		DocumentID: app.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexFailed, res.Status())
	}
	return nil
}

// SearchIDs resolves a free-text query over name, email and phone to
// application ids, best match first.
func (i *Index) SearchIDs(ctx context.Context, query string) ([]string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"_source": []string{"id"},
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  strings.TrimSpace(query),
				"fields": []string{"fullName^3", "email^2", "phoneNumber"},
				"type":   "phrase_prefix",
			},
		},
	})
	size := maxHits

	req := esapi.SearchRequest{
		Index: []string{i.name},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchQueryFailed, err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// Delete removes ids from the index. Missing documents are ignored.
func (i *Index) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		res, err := esapi.DeleteRequest{Index: i.name, DocumentID: id}.Do(ctx, i.client)
		if err != nil {
			return fmt.Errorf("%w: delete %s: %v", ErrIndexFailed, id, err)
		}
		res.Body.Close()
		if res.IsError() && res.StatusCode != http.StatusNotFound {
			return fmt.Errorf("%w: delete %s: %s", ErrIndexFailed, id, res.Status())
		}
	}
	return nil
}

func readBody(res *esapi.Response) string {
	raw, _ := io.ReadAll(res.Body)
	return string(raw)
}
