package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/avelichko/inkwell/internal/common"
	"github.com/avelichko/inkwell/internal/dbx"
	"github.com/avelichko/inkwell/internal/models"
	"github.com/avelichko/inkwell/internal/repositories/repomanager"
	"github.com/google/uuid"
)

// MaxListLimit caps a posts page; the listing is a single finite page, not
// a restartable cursor.
const MaxListLimit = 20

// PostService owns post creation, mutation gated by authorship, and reads.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager) *PostService {
	return &PostService{db: db, repomanager: m}
}

// normalizeID brings an identifier to a canonical form before comparison so
// that equivalent encodings (e.g. upper- vs lower-case UUID text) compare
// equal. Non-UUID identifiers fall back to a trimmed string.
func normalizeID(id string) string {
	if u, err := uuid.Parse(strings.TrimSpace(id)); err == nil {
		return u.String()
	}
	return strings.TrimSpace(id)
}

// AuthorizeOwner checks that requesterID identifies the post's author.
// Comparison is by normalized identifier equality, never by reference.
func AuthorizeOwner(requesterID, authorID string) error {
	if normalizeID(requesterID) != normalizeID(authorID) {
		return common.ErrForbidden
	}
	return nil
}

// CreatePost persists a new post with the author fixed to authorID.
func (s *PostService) CreatePost(ctx context.Context, draft *models.PostPatch, authorID string) (*models.Post, error) {
	post := &models.Post{
		Title:      draft.Title,
		Summary:    draft.Summary,
		Content:    draft.Content,
		CoverImage: draft.CoverImage,
		AuthorID:   normalizeID(authorID),
	}

	repo := s.repomanager.Posts(s.db)
	p, err := repo.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %v", err)
	}
	return p, nil
}

// UpdatePost applies the patch to the post iff requesterID is its author.
// The read-check-write runs in one transaction; a post deleted between the
// read and the write surfaces common.ErrorNotFound, and a non-author
// requester gets common.ErrForbidden with the post left untouched.
func (s *PostService) UpdatePost(ctx context.Context, id string, patch *models.PostPatch, requesterID string) (*models.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	var updated *models.Post
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		post, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if err := AuthorizeOwner(requesterID, post.AuthorID); err != nil {
			return err
		}

		if err := repo.Update(ctx, id, patch); err != nil {
			return err
		}

		updated, err = repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating post: %v", err)
	}
	return updated, nil
}

// ListPosts returns the newest posts, descending by creation time. The page
// size is capped at MaxListLimit; a non-positive limit means the full page.
func (s *PostService) ListPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	repo := s.repomanager.Posts(s.db)
	result, err := repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %v", err)
	}
	return result, nil
}

// GetPost returns a single post or common.ErrorNotFound.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	repo := s.repomanager.Posts(s.db)
	post, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error getting post: %v", err)
	}
	return post, nil
}
