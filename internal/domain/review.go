package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Review represents a customer's review of a purchased product
type Review struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	ProductID        uuid.UUID  `json:"product_id" db:"product_id"`
	ProductVariantID *uuid.UUID `json:"product_variant_id,omitempty" db:"product_variant_id"`
	CustomerID       uuid.UUID  `json:"customer_id" db:"customer_id"`
	OrderID          uuid.UUID  `json:"order_id" db:"order_id"`
	Rating           int        `json:"rating" db:"rating"`
	Content          string     `json:"content" db:"content"`
	Reply            *string    `json:"reply,omitempty" db:"reply"`
	Images           []*Image   `json:"images"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateReviewInput carries validated data for creating a review
type CreateReviewInput struct {
	ProductID        uuid.UUID  `json:"product_id" validate:"required"`
	ProductVariantID *uuid.UUID `json:"product_variant_id,omitempty"`
	CustomerID       uuid.UUID  `json:"customer_id" validate:"required"`
	OrderID          uuid.UUID  `json:"order_id" validate:"required"`
	Rating           int        `json:"rating" validate:"required,min=1,max=5"`
	Content          string     `json:"content" validate:"required,min=1,max=5000"`
	Images           []string   `json:"images,omitempty" validate:"omitempty,dive,url"`
}

// UpdateReviewInput carries validated data for updating a review.
// Images holds new image URLs to attach, ImagesKeep the ids of
// already-attached images that survive the update.
type UpdateReviewInput struct {
	ID         uuid.UUID   `json:"id" validate:"required"`
	Rating     int         `json:"rating" validate:"required,min=1,max=5"`
	Content    string      `json:"content" validate:"required,min=1,max=5000"`
	Images     []string    `json:"images,omitempty" validate:"omitempty,dive,url"`
	ImagesKeep []uuid.UUID `json:"images_keep,omitempty"`
}

// UpdateReplyInput carries a merchant reply for a review
type UpdateReplyInput struct {
	ID    uuid.UUID `json:"id" validate:"required"`
	Reply string    `json:"reply" validate:"required,min=1,max=5000"`
}

// ReviewFilter selects reviews for list queries. Zero-value fields are
// ignored. Soft-deleted reviews are never matched.
type ReviewFilter struct {
	IDs               []uuid.UUID
	ProductIDs        []uuid.UUID
	ProductVariantIDs []uuid.UUID
	CustomerIDs       []uuid.UUID
	OrderID           *uuid.UUID
	Ratings           []int
}

// RatingBucket is a single histogram bucket of a product's stats
type RatingBucket struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// ReviewStats aggregates rating metrics for one product
type ReviewStats struct {
	ProductID uuid.UUID      `json:"product_id"`
	Average   float64        `json:"average"`
	Count     int            `json:"count"`
	ByRating  []RatingBucket `json:"by_rating"`
}

// RatingCount is a raw (product, rating) group count row
type RatingCount struct {
	ProductID uuid.UUID `db:"product_id"`
	Rating    int       `db:"rating"`
	Count     int       `db:"count"`
}

// ReviewRepository defines the interface for review data access.
// All reads exclude soft-deleted reviews.
type ReviewRepository interface {
	// Create inserts a review and its image associations
	Create(ctx context.Context, review *Review) error

	// GetByID retrieves a review with its images
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)

	// FindAndCount retrieves reviews matching the filter ordered by
	// updated_at descending, along with the total match count
	FindAndCount(ctx context.Context, filter ReviewFilter, limit, offset int) ([]*Review, int, error)

	// GetByOrderID retrieves all reviews for an order
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*Review, error)

	// RatingCounts returns (product, rating) group counts for the products
	RatingCounts(ctx context.Context, productIDs []uuid.UUID) ([]RatingCount, error)

	// Update persists rating and content changes
	Update(ctx context.Context, review *Review) error

	// UpdateReply sets only the merchant reply
	UpdateReply(ctx context.Context, id uuid.UUID, reply string) error

	// SetImages replaces the review's image associations
	SetImages(ctx context.Context, reviewID uuid.UUID, imageIDs []uuid.UUID) error

	// SoftDelete marks a review deleted without removing the row
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Transactor runs a function within a single database transaction.
// Repository calls made with the supplied context join the transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
