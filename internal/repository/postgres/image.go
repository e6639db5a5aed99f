package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/storefront-plugins/product-reviews/internal/domain"
)

// ImageRepository implements domain.ImageRepository for PostgreSQL
type ImageRepository struct {
	db *sqlx.DB
}

// NewImageRepository creates a new PostgreSQL image repository
func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// FindOrCreate returns the image row for a URL, inserting it if absent.
// The unique index on url makes concurrent callers converge on one row.
func (r *ImageRepository) FindOrCreate(ctx context.Context, url string) (*domain.Image, error) {
	e := ext(ctx, r.db)

	var image domain.Image
	err := sqlx.GetContext(ctx, e, &image, `SELECT id, url, attribution, created_at FROM images WHERE url = $1`, url)
	if err == nil {
		return &image, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	query := `
		INSERT INTO images (url)
		VALUES ($1)
		ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url
		RETURNING id, url, attribution, created_at
	`
	if err := sqlx.GetContext(ctx, e, &image, query, url); err != nil {
		return nil, fmt.Errorf("failed to upsert image: %w", err)
	}

	return &image, nil
}

// GetByIDs retrieves images by id
func (r *ImageRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Image, error) {
	if len(ids) == 0 {
		return []*domain.Image{}, nil
	}

	e := ext(ctx, r.db)

	query, args, err := bindIn(e, `SELECT id, url, attribution, created_at FROM images WHERE id IN (?)`, []interface{}{ids})
	if err != nil {
		return nil, err
	}

	images := []*domain.Image{}
	if err := sqlx.SelectContext(ctx, e, &images, query, args...); err != nil {
		return nil, err
	}

	return images, nil
}

// GetByReviewID retrieves a review's images in association order
func (r *ImageRepository) GetByReviewID(ctx context.Context, reviewID uuid.UUID) ([]*domain.Image, error) {
	e := ext(ctx, r.db)

	query := `
		SELECT i.id, i.url, i.attribution, i.created_at
		FROM product_review_images pri
		JOIN images i ON i.id = pri.image_id
		WHERE pri.product_review_id = $1
		ORDER BY pri.position
	`

	images := []*domain.Image{}
	if err := sqlx.SelectContext(ctx, e, &images, query, reviewID); err != nil {
		return nil, err
	}

	return images, nil
}
