// Package search indexes and queries the materials catalog in Elasticsearch.
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

	"affiliate-portal/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
	ErrEmptyQuery        = errors.New("EMPTY_QUERY")
)

const maxSize = 100

// Index is the materials search index.
type Index struct {
	client      *elasticsearch.Client
	name        string
	defaultSize int
}

func NewIndex(client *elasticsearch.Client, name string, defaultSize int) *Index {
	if defaultSize <= 0 {
		defaultSize = 20
	}
	return &Index{client: client, name: name, defaultSize: defaultSize}
}

// Name returns the index name.
func (i *Index) Name() string {
	return i.name
}

// Result is one page of matching materials.
type Result struct {
	Materials []models.AffiliateMaterial `json:"materials"`
	TotalHits int64                      `json:"total"`
	Took      int                        `json:"took"`
}

type searchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string                   `json:"_id"`
			Score  float64                  `json:"_score"`
			Source models.AffiliateMaterial `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a full-text query over active materials, optionally restricted to one type.
func (i *Index) Search(ctx context.Context, query string, typ models.MaterialType, size int) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if size <= 0 {
		size = i.defaultSize
	}
	if size > maxSize {
		size = maxSize
	}

	body, err := json.Marshal(buildSearchQuery(query, typ))
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrSearchQueryFailed, err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.name),
		i.client.Search.WithBody(bytes.NewReader(body)),
		i.client.Search.WithSize(size),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if err := responseError(res); err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchQueryFailed, err)
	}

	result := &Result{
		Materials: make([]models.AffiliateMaterial, 0, len(parsed.Hits.Hits)),
		TotalHits: parsed.Hits.Total.Value,
		Took:      parsed.Took,
	}
	for _, hit := range parsed.Hits.Hits {
		m := hit.Source
		if m.ID == "" {
			m.ID = hit.ID
		}
		m.ViewType = m.Type.ViewType()
		result.Materials = append(result.Materials, m)
	}
	return result, nil
}

func buildSearchQuery(query string, typ models.MaterialType) map[string]interface{} {
	filterClauses := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"is_active": true}},
	}
	if typ != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"type": string(typ)},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  query,
							"fields": []string{"title^3", "description^2", "content", "product_tags"},
							"type":   "best_fields",
						},
					},
				},
				"filter": filterClauses,
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
}

func responseError(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusNotFound && strings.Contains(string(body), "index_not_found_exception") {
		return ErrIndexNotFound
	}
	return fmt.Errorf("%w: %s: %s", ErrSearchQueryFailed, res.Status(), string(body))
}
