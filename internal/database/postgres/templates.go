package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/doorlock/internal/gallery"
)

// TemplateRepository stores gallery templates in the gallery_templates table.
type TemplateRepository struct {
	pool *Pool
}

// NewTemplateRepository creates a repository over pool.
func NewTemplateRepository(pool *Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// Load implements gallery.Store.
func (r *TemplateRepository) Load(ctx context.Context) ([]gallery.Template, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, embedding, enrolled_at
		FROM gallery_templates
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []gallery.Template
	for rows.Next() {
		var (
			tpl gallery.Template
			vec pgvector.Vector
		)
		if err := rows.Scan(&tpl.ID, &vec, &tpl.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tpl.Embedding = vec.Slice()
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

// Append implements gallery.Store.
func (r *TemplateRepository) Append(ctx context.Context, tpl gallery.Template) error {
	vec := pgvector.NewVector(tpl.Embedding)
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO gallery_templates (id, embedding, dim, enrolled_at)
		VALUES ($1, $2, $3, $4)
	`, tpl.ID, vec, len(tpl.Embedding), tpl.EnrolledAt)
	if err != nil {
		return fmt.Errorf("insert template %d: %w", tpl.ID, err)
	}
	return nil
}

// Remove implements gallery.Store.
func (r *TemplateRepository) Remove(ctx context.Context, id int) error {
	res, err := r.pool.db.ExecContext(ctx, `DELETE FROM gallery_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("template %d not found", id)
	}
	return nil
}

// Close closes the underlying pool.
func (r *TemplateRepository) Close() error {
	return r.pool.Close()
}
