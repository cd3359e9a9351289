package store

import (
	"context"
	"database/sql"
	"fmt"

	"affiliate-portal/internal/models"

	"github.com/lib/pq"
)

// MaterialFilter narrows ListActiveMaterials. The zero value matches every active material.
type MaterialFilter struct {
	Type models.MaterialType
}

// ListActiveMaterials returns active materials, newest first.
func (s *Store) ListActiveMaterials(ctx context.Context, filter MaterialFilter) ([]models.AffiliateMaterial, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, title, description, type, category, content, file_url, thumbnail_url,
		       product_tags, social_platform, download_count, is_active, created_at, updated_at
		FROM affiliate_materials
		WHERE is_active = true`
	args := []interface{}{}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list materials", err)
	}
	defer rows.Close()

	materials := make([]models.AffiliateMaterial, 0)
	for rows.Next() {
		var (
			m           models.AffiliateMaterial
			description sql.NullString
			category    sql.NullString
			content     sql.NullString
			fileURL     sql.NullString
			thumbnail   sql.NullString
			platform    sql.NullString
			tags        pq.StringArray
			downloads   sql.NullInt64
			typ         string
		)
		if err := rows.Scan(
			&m.ID, &m.Title, &description, &typ, &category, &content, &fileURL, &thumbnail,
			&tags, &platform, &downloads, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, mapError("list materials", err)
		}

		m.Description = nullString(description)
		m.Type = models.MaterialType(typ)
		m.ViewType = m.Type.ViewType()
		m.Category = nullString(category)
		m.Content = nullString(content)
		m.FileURL = nullString(fileURL)
		m.ThumbnailURL = nullString(thumbnail)
		m.SocialPlatform = nullString(platform)
		m.ProductTags = []string(tags)
		if m.ProductTags == nil {
			m.ProductTags = []string{}
		}
		m.DownloadCount = downloads.Int64
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list materials", err)
	}
	return materials, nil
}

// IncrementMaterialDownload bumps the download counter of an active material.
func (s *Store) IncrementMaterialDownload(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE affiliate_materials
		SET download_count = download_count + 1, updated_at = NOW()
		WHERE id = $1 AND is_active = true`, id)
	if err != nil {
		return mapError("increment download", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return mapError("increment download", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: material %s", ErrNotFound, id)
	}
	return nil
}
