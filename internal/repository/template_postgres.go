package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Notifuse/mailblocks/internal/domain"
)

var templatePsql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var templateColumns = []string{
	"id",
	"user_id",
	"name",
	"description",
	"content",
	"block_count",
	"is_public",
	"created_at",
	"updated_at",
}

// list queries skip the content column
var templateSummaryColumns = []string{
	"id",
	"user_id",
	"name",
	"description",
	"block_count",
	"is_public",
	"created_at",
	"updated_at",
}

type templateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new PostgreSQL template repository
func NewTemplateRepository(db *sql.DB) domain.TemplateRepository {
	return &templateRepository{db: db}
}

// encodeContent serializes the block list and counts its top level blocks
func encodeContent(template *domain.Template) ([]byte, int, error) {
	value, err := template.Content.Value()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode template content: %w", err)
	}
	raw, _ := value.([]byte)
	return raw, domain.CountBlocks(raw), nil
}

func (r *templateRepository) CreateTemplate(ctx context.Context, template *domain.Template) error {
	content, blockCount, err := encodeContent(template)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now
	template.BlockCount = blockCount

	query, args, err := templatePsql.Insert("templates").
		Columns(templateColumns...).
		Values(
			template.ID,
			template.UserID,
			template.Name,
			template.Description,
			content,
			template.BlockCount,
			template.IsPublic,
			template.CreatedAt,
			template.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *templateRepository) GetTemplateByID(ctx context.Context, id string) (*domain.Template, error) {
	query, args, err := templatePsql.Select(templateColumns...).
		From("templates").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	template, err := scanTemplate(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, &domain.ErrTemplateNotFound{Message: "template not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return template, nil
}

func (r *templateRepository) ListTemplates(ctx context.Context, userID string, includePublic bool) ([]*domain.Template, error) {
	var where sq.Sqlizer = sq.Eq{"user_id": userID}
	if includePublic {
		where = sq.Or{sq.Eq{"user_id": userID}, sq.Eq{"is_public": true}}
	}

	query, args, err := templatePsql.Select(templateSummaryColumns...).
		From("templates").
		Where(where).
		OrderBy("updated_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := []*domain.Template{}
	for rows.Next() {
		template, err := scanTemplateSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template rows: %w", err)
	}

	return templates, nil
}

func (r *templateRepository) UpdateTemplate(ctx context.Context, template *domain.Template) error {
	content, blockCount, err := encodeContent(template)
	if err != nil {
		return err
	}

	template.UpdatedAt = time.Now().UTC()
	template.BlockCount = blockCount

	query, args, err := templatePsql.Update("templates").
		Set("name", template.Name).
		Set("description", template.Description).
		Set("content", content).
		Set("block_count", template.BlockCount).
		Set("is_public", template.IsPublic).
		Set("updated_at", template.UpdatedAt).
		Where(sq.Eq{"id": template.ID, "user_id": template.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return &domain.ErrTemplateNotFound{Message: "template not found"}
	}
	return nil
}

func (r *templateRepository) DeleteTemplate(ctx context.Context, userID, id string) error {
	query, args, err := templatePsql.Delete("templates").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return &domain.ErrTemplateNotFound{Message: "template not found"}
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTemplate(row scanner) (*domain.Template, error) {
	var (
		template    domain.Template
		description sql.NullString
	)
	err := row.Scan(
		&template.ID,
		&template.UserID,
		&template.Name,
		&description,
		&template.Content,
		&template.BlockCount,
		&template.IsPublic,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	template.Description = description.String
	return &template, nil
}

func scanTemplateSummary(row scanner) (*domain.Template, error) {
	var (
		template    domain.Template
		description sql.NullString
	)
	err := row.Scan(
		&template.ID,
		&template.UserID,
		&template.Name,
		&description,
		&template.BlockCount,
		&template.IsPublic,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	template.Description = description.String
	return &template, nil
}
