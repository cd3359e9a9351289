package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"affiliate-portal/internal/models"
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"id":              {"type": "keyword"},
			"title":           {"type": "text"},
			"description":     {"type": "text"},
			"content":         {"type": "text"},
			"type":            {"type": "keyword"},
			"view_type":       {"type": "keyword"},
			"category":        {"type": "keyword"},
			"product_tags":    {"type": "text", "fields": {"raw": {"type": "keyword"}}},
			"social_platform": {"type": "keyword"},
			"download_count":  {"type": "long"},
			"is_active":       {"type": "boolean"},
			"created_at":      {"type": "date"},
			"updated_at":      {"type": "date"}
		}
	}
}`

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.name}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: exists: %v", ErrSearchQueryFailed, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: exists: %s", ErrSearchQueryFailed, res.Status())
	}

	res, err = i.client.Indices.Create(i.name,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("%w: create: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()
	return responseError(res)
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// Sync bulk-indexes materials by id and returns how many were indexed.
func (i *Index) Sync(ctx context.Context, materials []models.AffiliateMaterial) (int, error) {
	if len(materials) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	for _, m := range materials {
		m.ViewType = m.Type.ViewType()

		meta, _ := json.Marshal(map[string]interface{}{
			"index": map[string]interface{}{"_index": i.name, "_id": m.ID},
		})
		doc, err := json.Marshal(m)
		if err != nil {
			return 0, fmt.Errorf("%w: encode material %s: %v", ErrSearchQueryFailed, m.ID, err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	res, err := i.client.Bulk(bytes.NewReader(buf.Bytes()),
		i.client.Bulk.WithContext(ctx),
		i.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: bulk: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if err := responseError(res); err != nil {
		return 0, err
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("%w: decode bulk response: %v", ErrSearchQueryFailed, err)
	}

	indexed := 0
	var firstErr string
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Error == nil && op.Status < 300 {
				indexed++
			} else if firstErr == "" && op.Error != nil {
				firstErr = fmt.Sprintf("%s: %s: %s", op.ID, op.Error.Type, op.Error.Reason)
			}
		}
	}
	if parsed.Errors {
		return indexed, fmt.Errorf("%w: bulk partially failed: %s", ErrSearchQueryFailed, firstErr)
	}
	return indexed, nil
}
