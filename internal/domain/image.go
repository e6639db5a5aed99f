package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Image is a stored review attachment, deduplicated by URL
type Image struct {
	ID          uuid.UUID `json:"id" db:"id"`
	URL         string    `json:"url" db:"url"`
	Attribution *string   `json:"attribution,omitempty" db:"attribution"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ImageRepository defines the interface for image data access
type ImageRepository interface {
	// FindOrCreate returns the image row for a URL, inserting it if absent
	FindOrCreate(ctx context.Context, url string) (*Image, error)

	// GetByIDs retrieves images by id
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Image, error)

	// GetByReviewID retrieves a review's images in association order
	GetByReviewID(ctx context.Context, reviewID uuid.UUID) ([]*Image, error)
}
