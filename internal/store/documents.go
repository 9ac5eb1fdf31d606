// internal/store/documents.go
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"smartbuilding-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// DocumentStore serves the document_list and document_search actions.
// Listing reads the relational archive; search goes through the
// full-text index.
type DocumentStore interface {
	List(ctx context.Context, tenantID string, limit int) ([]models.Document, error)
	Search(ctx context.Context, tenantID, query string, limit int) ([]models.Document, error)
}

type DocumentRepository struct {
	db    *sql.DB
	es    *elasticsearch.Client
	index string
}

func NewDocumentRepository(db *sql.DB, es *elasticsearch.Client, index string) *DocumentRepository {
	return &DocumentRepository{db: db, es: es, index: index}
}

func (r *DocumentRepository) List(ctx context.Context, tenantID string, limit int) ([]models.Document, error) {
	const query = `
		SELECT id, tenant_id, name, COALESCE(category, ''), updated_at
		FROM documents
		WHERE tenant_id = $1
		ORDER BY updated_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Name, &d.Category, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// esDocumentSource mirrors the indexed document shape.
type esDocumentSource struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *DocumentRepository) Search(ctx context.Context, tenantID, query string, limit int) ([]models.Document, error) {
	esQuery := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  query,
							"fields": []string{"name^2", "category", "content"},
						},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"tenantId": tenantID},
					},
				},
			},
		},
	}

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}

	res, err := r.es.Search(
		r.es.Search.WithContext(ctx),
		r.es.Search.WithIndex(r.index),
		r.es.Search.WithBody(&body),
	)
	if err != nil {
		return nil, fmt.Errorf("document search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("document search error: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source esDocumentSource `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]models.Document, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, models.Document{
			ID:        hit.Source.ID,
			TenantID:  hit.Source.TenantID,
			Name:      hit.Source.Name,
			Category:  hit.Source.Category,
			UpdatedAt: hit.Source.UpdatedAt,
		})
	}
	return docs, nil
}
