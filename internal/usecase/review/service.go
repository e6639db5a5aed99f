package review

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/storefront-plugins/product-reviews/internal/domain"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

// Review domain event names
const (
	EventCreated = "product_review.created"
	EventUpdated = "product_review.updated"
	EventDeleted = "product_review.deleted"
)

// EventsSubject is the JetStream subject review events are published to
const EventsSubject = "reviews.events"

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ImageResolver resolves image URL lists into persisted image rows
type ImageResolver interface {
	Upsert(ctx context.Context, urls []string) ([]*domain.Image, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Image, error)
}

// ReviewCache caches per-product stats and review list pages
type ReviewCache interface {
	GetStats(ctx context.Context, productID uuid.UUID) (*domain.ReviewStats, error)
	SetStats(ctx context.Context, stats *domain.ReviewStats) error
	GetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, int, error)
	SetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int, reviews []*domain.Review, total int) error
	InvalidateProduct(ctx context.Context, productID uuid.UUID) error
}

// ReviewEvent is the payload published on review mutations
type ReviewEvent struct {
	EventType        string     `json:"event_type"`
	Timestamp        time.Time  `json:"timestamp"`
	ID               uuid.UUID  `json:"id"`
	ProductID        uuid.UUID  `json:"product_id"`
	ProductVariantID *uuid.UUID `json:"product_variant_id,omitempty"`
	CustomerID       uuid.UUID  `json:"customer_id"`
	OrderID          uuid.UUID  `json:"order_id"`
}

// Service handles review business logic: CRUD, aggregate statistics,
// image attachment resolution and event publishing.
type Service struct {
	repo      domain.ReviewRepository
	images    ImageResolver
	tx        domain.Transactor
	cache     ReviewCache
	publisher EventPublisher
	validate  *validator.Validate
	logger    *logger.Logger
}

// NewService creates a new review service
func NewService(
	repo domain.ReviewRepository,
	images ImageResolver,
	tx domain.Transactor,
	cache ReviewCache,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		images:    images,
		tx:        tx,
		cache:     cache,
		publisher: publisher,
		validate:  validator.New(),
		logger:    log,
	}
}

// List retrieves reviews matching the filter, most recently updated
// first, along with the total match count. Single-product pages are
// served from cache when possible.
func (s *Service) List(ctx context.Context, filter domain.ReviewFilter, limit, offset int) ([]*domain.Review, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	cacheable := isSingleProductFilter(filter)
	if cacheable {
		productID := filter.ProductIDs[0]
		reviews, total, err := s.cache.GetReviewsList(ctx, productID, limit, offset)
		if err == nil {
			s.logger.Debugf("Cache hit for product %s reviews (limit=%d, offset=%d)", productID, limit, offset)
			return reviews, total, nil
		}
	}

	reviews, total, err := s.repo.FindAndCount(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list reviews", err)
		return nil, 0, err
	}

	if cacheable {
		productID := filter.ProductIDs[0]
		if err := s.cache.SetReviewsList(ctx, productID, limit, offset, reviews, total); err != nil {
			s.logger.Warnf("Failed to cache reviews for product %s: %v", productID, err)
		}
	}

	return reviews, total, nil
}

// GetByID retrieves a review by id
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err != domain.ErrNotFound {
			s.logger.Error("Failed to get review", err)
		}
		return nil, err
	}
	return review, nil
}

// RetrieveByOrder retrieves all reviews for an order
func (s *Service) RetrieveByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.Review, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

// Stats computes per-product rating statistics: average rounded to two
// decimals, total count, and a histogram over ratings 0 through 5. The
// rating-0 bucket is always present with count 0.
func (s *Service) Stats(ctx context.Context, productIDs []uuid.UUID) ([]*domain.ReviewStats, error) {
	if len(productIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}

	results := make(map[uuid.UUID]*domain.ReviewStats, len(productIDs))
	misses := make([]uuid.UUID, 0, len(productIDs))

	for _, productID := range productIDs {
		if cached, err := s.cache.GetStats(ctx, productID); err == nil {
			results[productID] = cached
			continue
		}
		misses = append(misses, productID)
	}

	if len(misses) > 0 {
		counts, err := s.repo.RatingCounts(ctx, misses)
		if err != nil {
			s.logger.Error("Failed to load rating counts", err)
			return nil, err
		}

		grouped := make(map[uuid.UUID][]domain.RatingCount, len(misses))
		for _, c := range counts {
			grouped[c.ProductID] = append(grouped[c.ProductID], c)
		}

		for _, productID := range misses {
			stats := foldStats(productID, grouped[productID])
			results[productID] = stats
			if err := s.cache.SetStats(ctx, stats); err != nil {
				s.logger.Warnf("Failed to cache stats for product %s: %v", productID, err)
			}
		}
	}

	ordered := make([]*domain.ReviewStats, 0, len(productIDs))
	for _, productID := range productIDs {
		ordered = append(ordered, results[productID])
	}
	return ordered, nil
}

// Create validates the input, resolves image attachments and persists
// the review. Image resolution and the row write share one transaction,
// so a half-applied review is never observable.
func (s *Service) Create(ctx context.Context, input *domain.CreateReviewInput) (*domain.Review, error) {
	if err := s.validate.Struct(input); err != nil {
		s.logger.Error("Review validation failed", err)
		return nil, domain.ErrInvalidInput
	}

	review := &domain.Review{
		ProductID:        input.ProductID,
		ProductVariantID: input.ProductVariantID,
		CustomerID:       input.CustomerID,
		OrderID:          input.OrderID,
		Rating:           input.Rating,
		Content:          input.Content,
		Images:           []*domain.Image{},
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		images, err := s.images.Upsert(ctx, input.Images)
		if err != nil {
			return err
		}

		if err := s.repo.Create(ctx, review); err != nil {
			return err
		}

		if err := s.repo.SetImages(ctx, review.ID, imageIDs(images)); err != nil {
			return err
		}

		review.Images = images
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create review", err)
		return nil, err
	}

	s.invalidateCache(ctx, review.ProductID)
	s.publishEvent(EventCreated, review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  review.ID,
		"product_id": review.ProductID,
		"rating":     review.Rating,
	}).Info("Review created successfully")

	return review, nil
}

// Update merges new content/rating into an existing review and replaces
// its image set with the newly uploaded images plus the ones explicitly
// kept. Runs in one transaction.
func (s *Service) Update(ctx context.Context, input *domain.UpdateReviewInput) (*domain.Review, error) {
	if err := s.validate.Struct(input); err != nil {
		s.logger.Error("Review validation failed", err)
		return nil, domain.ErrInvalidInput
	}

	review, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		newImages, err := s.images.Upsert(ctx, input.Images)
		if err != nil {
			return err
		}

		kept, err := s.images.GetByIDs(ctx, input.ImagesKeep)
		if err != nil {
			return err
		}

		merged := append(newImages, kept...)

		review.Rating = input.Rating
		review.Content = input.Content
		if err := s.repo.Update(ctx, review); err != nil {
			return err
		}

		if err := s.repo.SetImages(ctx, review.ID, imageIDs(merged)); err != nil {
			return err
		}

		review.Images = merged
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update review", err)
		return nil, err
	}

	s.invalidateCache(ctx, review.ProductID)
	s.publishEvent(EventUpdated, review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  review.ID,
		"product_id": review.ProductID,
		"rating":     review.Rating,
	}).Info("Review updated successfully")

	return review, nil
}

// UpdateReply sets only the merchant reply, leaving rating, content and
// images untouched.
func (s *Service) UpdateReply(ctx context.Context, input *domain.UpdateReplyInput) (*domain.Review, error) {
	if err := s.validate.Struct(input); err != nil {
		s.logger.Error("Reply validation failed", err)
		return nil, domain.ErrInvalidInput
	}

	review, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateReply(ctx, input.ID, input.Reply); err != nil {
		s.logger.Error("Failed to update reply", err)
		return nil, err
	}

	review.Reply = &input.Reply

	s.invalidateCache(ctx, review.ProductID)
	s.publishEvent(EventUpdated, review)

	return review, nil
}

// Delete soft-deletes a review. The row and its image associations are
// retained.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		s.logger.Error("Failed to delete review", err)
		return err
	}

	s.invalidateCache(ctx, review.ProductID)
	s.publishEvent(EventDeleted, review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  id,
		"product_id": review.ProductID,
	}).Info("Review deleted successfully")

	return nil
}

func (s *Service) invalidateCache(ctx context.Context, productID uuid.UUID) {
	// Stale cache would show incorrect stats and review lists
	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", productID, err)
	}
}

// publishEvent publishes a review event (non-blocking)
func (s *Service) publishEvent(eventType string, review *domain.Review) {
	event := ReviewEvent{
		EventType:        eventType,
		Timestamp:        time.Now(),
		ID:               review.ID,
		ProductID:        review.ProductID,
		ProductVariantID: review.ProductVariantID,
		CustomerID:       review.CustomerID,
		OrderID:          review.OrderID,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for review %s", review.ID)
		return
	}

	go func() {
		if err := s.publisher.Publish(context.Background(), EventsSubject, data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for review %s", review.ID)
		}
	}()
}

// foldStats turns raw (rating, count) groups into one product's summary
func foldStats(productID uuid.UUID, counts []domain.RatingCount) *domain.ReviewStats {
	total := 0
	weighted := 0
	for _, c := range counts {
		total += c.Count
		weighted += c.Rating * c.Count
	}

	average := 0.0
	if total > 0 {
		average = math.Round(float64(weighted)/float64(total)*100) / 100
	}

	byRating := make([]domain.RatingBucket, 6)
	for rating := 0; rating <= 5; rating++ {
		byRating[rating] = domain.RatingBucket{Rating: rating}
	}
	for _, c := range counts {
		if c.Rating >= 0 && c.Rating <= 5 {
			byRating[c.Rating].Count = c.Count
		}
	}

	return &domain.ReviewStats{
		ProductID: productID,
		Average:   average,
		Count:     total,
		ByRating:  byRating,
	}
}

func imageIDs(images []*domain.Image) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	return ids
}

func isSingleProductFilter(filter domain.ReviewFilter) bool {
	return len(filter.ProductIDs) == 1 &&
		len(filter.IDs) == 0 &&
		len(filter.ProductVariantIDs) == 0 &&
		len(filter.CustomerIDs) == 0 &&
		filter.OrderID == nil &&
		len(filter.Ratings) == 0
}
