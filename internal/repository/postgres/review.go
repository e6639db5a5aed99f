package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/storefront-plugins/product-reviews/internal/domain"
)

const reviewColumns = `id, product_id, product_variant_id, customer_id, order_id, rating, content, reply, created_at, updated_at, deleted_at`

// ReviewRepository implements domain.ReviewRepository for PostgreSQL
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review row. Image associations are written separately
// via SetImages inside the same transaction.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	e := ext(ctx, r.db)

	query := `
		INSERT INTO reviews (product_id, product_variant_id, customer_id, order_id, rating, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := sqlx.GetContext(ctx, e, review, query,
		review.ProductID,
		review.ProductVariantID,
		review.CustomerID,
		review.OrderID,
		review.Rating,
		review.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review with its images
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	e := ext(ctx, r.db)

	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1 AND deleted_at IS NULL`, reviewColumns)

	var review domain.Review
	err := sqlx.GetContext(ctx, e, &review, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if err := r.attachImages(ctx, []*domain.Review{&review}); err != nil {
		return nil, err
	}

	return &review, nil
}

// FindAndCount retrieves reviews matching the filter ordered by
// updated_at descending, along with the total match count
func (r *ReviewRepository) FindAndCount(ctx context.Context, filter domain.ReviewFilter, limit, offset int) ([]*domain.Review, int, error) {
	e := ext(ctx, r.db)

	where, args := buildReviewWhere(filter)

	countQuery := `SELECT COUNT(*) FROM reviews ` + where
	countQuery, countArgs, err := bindIn(e, countQuery, args)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := sqlx.GetContext(ctx, e, &total, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM reviews %s ORDER BY updated_at DESC LIMIT ? OFFSET ?`, reviewColumns, where)
	listQuery, listArgs, err := bindIn(e, listQuery, append(append([]interface{}{}, args...), limit, offset))
	if err != nil {
		return nil, 0, err
	}

	reviews := []*domain.Review{}
	if err := sqlx.SelectContext(ctx, e, &reviews, listQuery, listArgs...); err != nil {
		return nil, 0, err
	}

	if err := r.attachImages(ctx, reviews); err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

// GetByOrderID retrieves all reviews for an order
func (r *ReviewRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Review, error) {
	e := ext(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT %s FROM reviews
		WHERE order_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC
	`, reviewColumns)

	reviews := []*domain.Review{}
	if err := sqlx.SelectContext(ctx, e, &reviews, query, orderID); err != nil {
		return nil, err
	}

	if err := r.attachImages(ctx, reviews); err != nil {
		return nil, err
	}

	return reviews, nil
}

// RatingCounts returns (product, rating) group counts for the products
func (r *ReviewRepository) RatingCounts(ctx context.Context, productIDs []uuid.UUID) ([]domain.RatingCount, error) {
	if len(productIDs) == 0 {
		return []domain.RatingCount{}, nil
	}

	e := ext(ctx, r.db)

	query := `
		SELECT product_id, rating, COUNT(*) AS count
		FROM reviews
		WHERE product_id IN (?) AND deleted_at IS NULL
		GROUP BY product_id, rating
	`

	query, args, err := bindIn(e, query, []interface{}{productIDs})
	if err != nil {
		return nil, err
	}

	counts := []domain.RatingCount{}
	if err := sqlx.SelectContext(ctx, e, &counts, query, args...); err != nil {
		return nil, err
	}

	return counts, nil
}

// Update persists rating and content changes
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	e := ext(ctx, r.db)

	query := `
		UPDATE reviews
		SET rating = $1, content = $2, updated_at = $3
		WHERE id = $4 AND deleted_at IS NULL
		RETURNING updated_at
	`

	review.UpdatedAt = time.Now()

	err := e.QueryRowxContext(ctx, query, review.Rating, review.Content, review.UpdatedAt, review.ID).
		Scan(&review.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	return nil
}

// UpdateReply sets only the merchant reply
func (r *ReviewRepository) UpdateReply(ctx context.Context, id uuid.UUID, reply string) error {
	e := ext(ctx, r.db)

	query := `
		UPDATE reviews
		SET reply = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
		RETURNING updated_at
	`

	var updatedAt time.Time
	err := e.QueryRowxContext(ctx, query, reply, time.Now(), id).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	return nil
}

// SetImages replaces the review's image associations, preserving the
// order of imageIDs
func (r *ReviewRepository) SetImages(ctx context.Context, reviewID uuid.UUID, imageIDs []uuid.UUID) error {
	e := ext(ctx, r.db)

	if _, err := e.ExecContext(ctx, `DELETE FROM product_review_images WHERE product_review_id = $1`, reviewID); err != nil {
		return fmt.Errorf("failed to clear review images: %w", err)
	}

	for i, imageID := range imageIDs {
		_, err := e.ExecContext(ctx, `
			INSERT INTO product_review_images (product_review_id, image_id, position)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, reviewID, imageID, i)
		if err != nil {
			return fmt.Errorf("failed to associate image %s: %w", imageID, err)
		}
	}

	return nil
}

// SoftDelete marks a review deleted without removing the row
func (r *ReviewRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	e := ext(ctx, r.db)

	query := `
		UPDATE reviews
		SET deleted_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`

	result, err := e.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

type reviewImageRow struct {
	ReviewID    uuid.UUID `db:"product_review_id"`
	ID          uuid.UUID `db:"id"`
	URL         string    `db:"url"`
	Attribution *string   `db:"attribution"`
	CreatedAt   time.Time `db:"created_at"`
}

// attachImages loads image associations for a batch of reviews
func (r *ReviewRepository) attachImages(ctx context.Context, reviews []*domain.Review) error {
	for _, review := range reviews {
		review.Images = []*domain.Image{}
	}
	if len(reviews) == 0 {
		return nil
	}

	e := ext(ctx, r.db)

	ids := make([]uuid.UUID, 0, len(reviews))
	byID := make(map[uuid.UUID]*domain.Review, len(reviews))
	for _, review := range reviews {
		ids = append(ids, review.ID)
		byID[review.ID] = review
	}

	query := `
		SELECT pri.product_review_id, i.id, i.url, i.attribution, i.created_at
		FROM product_review_images pri
		JOIN images i ON i.id = pri.image_id
		WHERE pri.product_review_id IN (?)
		ORDER BY pri.product_review_id, pri.position
	`

	query, args, err := bindIn(e, query, []interface{}{ids})
	if err != nil {
		return err
	}

	rows := []reviewImageRow{}
	if err := sqlx.SelectContext(ctx, e, &rows, query, args...); err != nil {
		return fmt.Errorf("failed to load review images: %w", err)
	}

	for _, row := range rows {
		review := byID[row.ReviewID]
		if review == nil {
			continue
		}
		review.Images = append(review.Images, &domain.Image{
			ID:          row.ID,
			URL:         row.URL,
			Attribution: row.Attribution,
			CreatedAt:   row.CreatedAt,
		})
	}

	return nil
}

// buildReviewWhere renders the filter into a WHERE clause with ?
// placeholders suitable for sqlx.In expansion
func buildReviewWhere(filter domain.ReviewFilter) (string, []interface{}) {
	conditions := []string{"deleted_at IS NULL"}
	args := []interface{}{}

	if len(filter.IDs) > 0 {
		conditions = append(conditions, "id IN (?)")
		args = append(args, filter.IDs)
	}
	if len(filter.ProductIDs) > 0 {
		conditions = append(conditions, "product_id IN (?)")
		args = append(args, filter.ProductIDs)
	}
	if len(filter.ProductVariantIDs) > 0 {
		conditions = append(conditions, "product_variant_id IN (?)")
		args = append(args, filter.ProductVariantIDs)
	}
	if len(filter.CustomerIDs) > 0 {
		conditions = append(conditions, "customer_id IN (?)")
		args = append(args, filter.CustomerIDs)
	}
	if filter.OrderID != nil {
		conditions = append(conditions, "order_id IN (?)")
		args = append(args, []uuid.UUID{*filter.OrderID})
	}
	if len(filter.Ratings) > 0 {
		conditions = append(conditions, "rating IN (?)")
		args = append(args, filter.Ratings)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// bindIn expands slice arguments and rebinds placeholders for the driver
func bindIn(e sqlx.ExtContext, query string, args []interface{}) (string, []interface{}, error) {
	query, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to expand query arguments: %w", err)
	}
	return e.Rebind(query), expanded, nil
}
