package posts

import (
	"context"

	"github.com/avelichko/inkwell/internal/models"
)

type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, limit int) ([]*models.Post, error)
	Update(ctx context.Context, id string, patch *models.PostPatch) error
}
