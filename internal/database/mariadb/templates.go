package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kozaktomas/doorlock/internal/gallery"
)

// TemplateRepository stores gallery templates with the embedding as a JSON
// list in embedding_json.
type TemplateRepository struct {
	pool *Pool
}

// NewTemplateRepository creates a repository over pool.
func NewTemplateRepository(pool *Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// Load implements gallery.Store.
func (r *TemplateRepository) Load(ctx context.Context) ([]gallery.Template, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, embedding_json, enrolled_at FROM gallery_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []gallery.Template
	for rows.Next() {
		var (
			tpl  gallery.Template
			data []byte
		)
		if err := rows.Scan(&tpl.ID, &data, &tpl.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if err := json.Unmarshal(data, &tpl.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding of template %d: %w", tpl.ID, err)
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

// Append implements gallery.Store.
func (r *TemplateRepository) Append(ctx context.Context, tpl gallery.Template) error {
	data, err := json.Marshal(tpl.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	query := `INSERT INTO gallery_templates (id, embedding_json, enrolled_at) VALUES (?, ?, ?)`
	if _, err := r.pool.db.ExecContext(ctx, query, tpl.ID, data, tpl.EnrolledAt.UTC()); err != nil {
		return fmt.Errorf("insert template %d: %w", tpl.ID, err)
	}
	return nil
}

// Remove implements gallery.Store.
func (r *TemplateRepository) Remove(ctx context.Context, id int) error {
	// RowsAffected is unreliable on MySQL, so check existence first.
	var exists bool
	err := r.pool.db.QueryRowContext(ctx, `SELECT 1 FROM gallery_templates WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("template %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("look up template %d: %w", id, err)
	}

	if _, err := r.pool.db.ExecContext(ctx, `DELETE FROM gallery_templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	return nil
}

// Close closes the underlying pool.
func (r *TemplateRepository) Close() error {
	return r.pool.Close()
}
