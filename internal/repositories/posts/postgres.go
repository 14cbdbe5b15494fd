// Package posts provides the PostgreSQL-backed post store with the
// ownership metadata needed by the authorization guard.
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avelichko/inkwell/internal/common"
	"github.com/avelichko/inkwell/internal/dbx"
	"github.com/avelichko/inkwell/internal/models"
)

// PostgresRepository implements post storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new post. The author is set here and no update statement
// in this repository ever touches author_id.
func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {

	query :=
		`INSERT INTO posts (title, summary, content, cover_image, author_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		post.Title, post.Summary, post.Content, post.CoverImage, post.AuthorID).
		Scan(&post.ID, &post.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return post, nil
}

// GetByID returns a single post with the author's username joined in,
// or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query :=
		`SELECT p.id, p.title, p.summary, p.content, p.cover_image, p.author_id, u.username, p.created_at
		 FROM posts p JOIN users u ON u.id = p.author_id
		 WHERE p.id = $1
		 `

	post := &models.Post{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID, &post.Title, &post.Summary, &post.Content, &post.CoverImage,
		&post.AuthorID, &post.AuthorName, &post.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return post, nil
}

// List returns at most limit posts ordered by created_at descending,
// with author usernames joined in.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.Post, error) {
	query :=
		`SELECT p.id, p.title, p.summary, p.content, p.cover_image, p.author_id, u.username, p.created_at
		 FROM posts p JOIN users u ON u.id = p.author_id
		 ORDER BY p.created_at DESC
		 LIMIT $1
		 `

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	var result []*models.Post
	for rows.Next() {
		var item models.Post
		if err := rows.Scan(
			&item.ID, &item.Title, &item.Summary, &item.Content, &item.CoverImage,
			&item.AuthorID, &item.AuthorName, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update applies the patch to the post keyed by id. The write itself is
// conditional on the row still existing, so an update racing a delete
// reports common.ErrorNotFound instead of resurrecting the row. An empty
// CoverImage in the patch preserves the stored asset key.
func (r *PostgresRepository) Update(ctx context.Context, id string, patch *models.PostPatch) error {
	query := `
		UPDATE posts
		SET title = $2,
			summary = $3,
			content = $4,
			cover_image = COALESCE(NULLIF($5, ''), cover_image)
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		id, patch.Title, patch.Summary, patch.Content, patch.CoverImage)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
