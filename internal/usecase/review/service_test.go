package review

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/storefront-plugins/product-reviews/internal/domain"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

// MockReviewRepository is a mock implementation of domain.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) FindAndCount(ctx context.Context, filter domain.ReviewFilter, limit, offset int) ([]*domain.Review, int, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Review), args.Int(1), args.Error(2)
}

func (m *MockReviewRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Review, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) RatingCounts(ctx context.Context, productIDs []uuid.UUID) ([]domain.RatingCount, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RatingCount), args.Error(1)
}

func (m *MockReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) UpdateReply(ctx context.Context, id uuid.UUID, reply string) error {
	args := m.Called(ctx, id, reply)
	return args.Error(0)
}

func (m *MockReviewRepository) SetImages(ctx context.Context, reviewID uuid.UUID, imageIDs []uuid.UUID) error {
	args := m.Called(ctx, reviewID, imageIDs)
	return args.Error(0)
}

func (m *MockReviewRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockImageResolver is a mock implementation of ImageResolver
type MockImageResolver struct {
	mock.Mock
}

func (m *MockImageResolver) Upsert(ctx context.Context, urls []string) ([]*domain.Image, error) {
	args := m.Called(ctx, urls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Image), args.Error(1)
}

func (m *MockImageResolver) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Image, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Image), args.Error(1)
}

// MockReviewCache is a mock implementation of ReviewCache
type MockReviewCache struct {
	mock.Mock
}

func (m *MockReviewCache) GetStats(ctx context.Context, productID uuid.UUID) (*domain.ReviewStats, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewStats), args.Error(1)
}

func (m *MockReviewCache) SetStats(ctx context.Context, stats *domain.ReviewStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockReviewCache) GetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*domain.Review, int, error) {
	args := m.Called(ctx, productID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Review), args.Int(1), args.Error(2)
}

func (m *MockReviewCache) SetReviewsList(ctx context.Context, productID uuid.UUID, limit, offset int, reviews []*domain.Review, total int) error {
	args := m.Called(ctx, productID, limit, offset, reviews, total)
	return args.Error(0)
}

func (m *MockReviewCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

// passthroughTx runs the function directly, standing in for a real
// database transaction in unit tests
type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(repo *MockReviewRepository, images *MockImageResolver, cache *MockReviewCache, publisher *MockEventPublisher) *Service {
	return NewService(repo, images, passthroughTx{}, cache, publisher, logger.New("test"))
}

func validCreateInput() *domain.CreateReviewInput {
	return &domain.CreateReviewInput{
		ProductID:  uuid.New(),
		CustomerID: uuid.New(),
		OrderID:    uuid.New(),
		Rating:     5,
		Content:    "Great product!",
	}
}

func TestService_Create_Success(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	input := validCreateInput()
	input.Images = []string{"https://cdn.example.com/a.jpg"}
	image := &domain.Image{ID: uuid.New(), URL: "https://cdn.example.com/a.jpg"}

	mockImages.On("Upsert", mock.Anything, input.Images).Return([]*domain.Image{image}, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Review")).Return(nil)
	mockRepo.On("SetImages", mock.Anything, mock.Anything, []uuid.UUID{image.ID}).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, input.ProductID).Return(nil)
	mockPublisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil)

	review, err := service.Create(context.Background(), input)

	assert.NoError(t, err)
	assert.Equal(t, input.ProductID, review.ProductID)
	assert.Equal(t, input.Rating, review.Rating)
	assert.Len(t, review.Images, 1)
	mockRepo.AssertExpectations(t)
	mockImages.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_Create_InvalidRating(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	input := validCreateInput()
	input.Rating = 6

	review, err := service.Create(context.Background(), input)

	assert.Error(t, err)
	assert.Equal(t, domain.ErrInvalidInput, err)
	assert.Nil(t, review)
	mockRepo.AssertNotCalled(t, "Create")
	mockCache.AssertNotCalled(t, "InvalidateProduct")
}

func TestService_Create_EmptyContent(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	input := validCreateInput()
	input.Content = ""

	_, err := service.Create(context.Background(), input)

	assert.Equal(t, domain.ErrInvalidInput, err)
	mockRepo.AssertNotCalled(t, "Create")
}

func TestService_Create_CacheInvalidationFailure(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	input := validCreateInput()

	mockImages.On("Upsert", mock.Anything, mock.Anything).Return([]*domain.Image{}, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Review")).Return(nil)
	mockRepo.On("SetImages", mock.Anything, mock.Anything, []uuid.UUID{}).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, input.ProductID).Return(assert.AnError)
	mockPublisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil)

	// Cache failure should not prevent operation from succeeding
	review, err := service.Create(context.Background(), input)

	assert.NoError(t, err, "Operation should succeed even when cache fails")
	assert.NotNil(t, review)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_List_SingleProduct_CacheHit(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	productID := uuid.New()
	filter := domain.ReviewFilter{ProductIDs: []uuid.UUID{productID}}
	expectedReviews := []*domain.Review{
		{ID: uuid.New(), ProductID: productID, Rating: 5},
		{ID: uuid.New(), ProductID: productID, Rating: 4},
	}

	mockCache.On("GetReviewsList", mock.Anything, productID, 20, 0).Return(expectedReviews, 2, nil)

	reviews, total, err := service.List(context.Background(), filter, 20, 0)

	assert.NoError(t, err)
	assert.Equal(t, expectedReviews, reviews)
	assert.Equal(t, 2, total)
	mockCache.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "FindAndCount")
}

func TestService_List_SingleProduct_CacheMiss(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	productID := uuid.New()
	filter := domain.ReviewFilter{ProductIDs: []uuid.UUID{productID}}
	expectedReviews := []*domain.Review{
		{ID: uuid.New(), ProductID: productID, Rating: 5},
	}

	mockCache.On("GetReviewsList", mock.Anything, productID, 20, 0).Return(nil, 0, domain.ErrNotFound)
	mockRepo.On("FindAndCount", mock.Anything, filter, 20, 0).Return(expectedReviews, 1, nil)
	mockCache.On("SetReviewsList", mock.Anything, productID, 20, 0, expectedReviews, 1).Return(nil)

	reviews, total, err := service.List(context.Background(), filter, 20, 0)

	assert.NoError(t, err)
	assert.Equal(t, expectedReviews, reviews)
	assert.Equal(t, 1, total)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestService_List_MultiFilter_SkipsCache(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	filter := domain.ReviewFilter{
		ProductIDs: []uuid.UUID{uuid.New()},
		Ratings:    []int{4, 5},
	}

	mockRepo.On("FindAndCount", mock.Anything, filter, 20, 0).Return([]*domain.Review{}, 0, nil)

	_, _, err := service.List(context.Background(), filter, 20, 0)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockCache.AssertNotCalled(t, "GetReviewsList")
	mockCache.AssertNotCalled(t, "SetReviewsList")
}

func TestService_List_ClampsPagination(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	filter := domain.ReviewFilter{Ratings: []int{5}}

	mockRepo.On("FindAndCount", mock.Anything, filter, 20, 0).Return([]*domain.Review{}, 0, nil)

	_, _, err := service.List(context.Background(), filter, 500, -3)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestService_Stats_FoldsRatingCounts(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	productID := uuid.New()
	counts := []domain.RatingCount{
		{ProductID: productID, Rating: 5, Count: 2},
		{ProductID: productID, Rating: 4, Count: 1},
	}

	mockCache.On("GetStats", mock.Anything, productID).Return(nil, domain.ErrNotFound)
	mockRepo.On("RatingCounts", mock.Anything, []uuid.UUID{productID}).Return(counts, nil)
	mockCache.On("SetStats", mock.Anything, mock.AnythingOfType("*domain.ReviewStats")).Return(nil)

	stats, err := service.Stats(context.Background(), []uuid.UUID{productID})

	assert.NoError(t, err)
	assert.Len(t, stats, 1)
	assert.Equal(t, productID, stats[0].ProductID)
	assert.Equal(t, 3, stats[0].Count)
	assert.InDelta(t, 4.67, stats[0].Average, 0.001)
	assert.Len(t, stats[0].ByRating, 6)
	assert.Equal(t, 0, stats[0].ByRating[0].Count)
	assert.Equal(t, 1, stats[0].ByRating[4].Count)
	assert.Equal(t, 2, stats[0].ByRating[5].Count)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_Stats_NoReviews(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	productID := uuid.New()

	mockCache.On("GetStats", mock.Anything, productID).Return(nil, domain.ErrNotFound)
	mockRepo.On("RatingCounts", mock.Anything, []uuid.UUID{productID}).Return([]domain.RatingCount{}, nil)
	mockCache.On("SetStats", mock.Anything, mock.Anything).Return(nil)

	stats, err := service.Stats(context.Background(), []uuid.UUID{productID})

	assert.NoError(t, err)
	assert.Len(t, stats, 1)
	assert.Equal(t, 0, stats[0].Count)
	assert.Equal(t, 0.0, stats[0].Average)
	assert.Len(t, stats[0].ByRating, 6)
	for rating, bucket := range stats[0].ByRating {
		assert.Equal(t, rating, bucket.Rating)
		assert.Equal(t, 0, bucket.Count)
	}
}

func TestService_Stats_CacheHit(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	productID := uuid.New()
	cached := &domain.ReviewStats{ProductID: productID, Average: 4.5, Count: 10}

	mockCache.On("GetStats", mock.Anything, productID).Return(cached, nil)

	stats, err := service.Stats(context.Background(), []uuid.UUID{productID})

	assert.NoError(t, err)
	assert.Equal(t, cached, stats[0])
	mockRepo.AssertNotCalled(t, "RatingCounts")
}

func TestService_Stats_NoProducts(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	stats, err := service.Stats(context.Background(), nil)

	assert.Equal(t, domain.ErrInvalidInput, err)
	assert.Nil(t, stats)
}

func TestService_Update_MergesKeptImages(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	reviewID := uuid.New()
	productID := uuid.New()
	existing := &domain.Review{
		ID:         reviewID,
		ProductID:  productID,
		CustomerID: uuid.New(),
		OrderID:    uuid.New(),
		Rating:     5,
		Content:    "Great product!",
	}
	newImage := &domain.Image{ID: uuid.New(), URL: "https://cdn.example.com/new.jpg"}
	keptImage := &domain.Image{ID: uuid.New(), URL: "https://cdn.example.com/kept.jpg"}

	input := &domain.UpdateReviewInput{
		ID:         reviewID,
		Rating:     4,
		Content:    "Updated review text",
		Images:     []string{newImage.URL},
		ImagesKeep: []uuid.UUID{keptImage.ID},
	}

	mockRepo.On("GetByID", mock.Anything, reviewID).Return(existing, nil)
	mockImages.On("Upsert", mock.Anything, input.Images).Return([]*domain.Image{newImage}, nil)
	mockImages.On("GetByIDs", mock.Anything, input.ImagesKeep).Return([]*domain.Image{keptImage}, nil)
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Review")).Return(nil)
	mockRepo.On("SetImages", mock.Anything, reviewID, []uuid.UUID{newImage.ID, keptImage.ID}).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, productID).Return(nil)
	mockPublisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil)

	review, err := service.Update(context.Background(), input)

	assert.NoError(t, err)
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, "Updated review text", review.Content)
	assert.Len(t, review.Images, 2)
	mockRepo.AssertExpectations(t)
	mockImages.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_Update_NotFound(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	input := &domain.UpdateReviewInput{
		ID:      uuid.New(),
		Rating:  4,
		Content: "Updated review text",
	}

	mockRepo.On("GetByID", mock.Anything, input.ID).Return(nil, domain.ErrNotFound)

	review, err := service.Update(context.Background(), input)

	assert.Equal(t, domain.ErrNotFound, err)
	assert.Nil(t, review)
	mockRepo.AssertNotCalled(t, "Update")
}

func TestService_UpdateReply_Success(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	reviewID := uuid.New()
	productID := uuid.New()
	existing := &domain.Review{ID: reviewID, ProductID: productID, Rating: 5, Content: "Great product!"}

	input := &domain.UpdateReplyInput{ID: reviewID, Reply: "Thanks for the feedback!"}

	mockRepo.On("GetByID", mock.Anything, reviewID).Return(existing, nil)
	mockRepo.On("UpdateReply", mock.Anything, reviewID, input.Reply).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, productID).Return(nil)
	mockPublisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil)

	review, err := service.UpdateReply(context.Background(), input)

	assert.NoError(t, err)
	assert.NotNil(t, review.Reply)
	assert.Equal(t, input.Reply, *review.Reply)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_Delete_Success(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	reviewID := uuid.New()
	productID := uuid.New()
	existing := &domain.Review{ID: reviewID, ProductID: productID, Rating: 5, Content: "Great product!"}

	mockRepo.On("GetByID", mock.Anything, reviewID).Return(existing, nil)
	mockRepo.On("SoftDelete", mock.Anything, reviewID).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, productID).Return(nil)
	mockPublisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil)

	err := service.Delete(context.Background(), reviewID)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestService_Delete_NotFound(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockImages := new(MockImageResolver)
	mockCache := new(MockReviewCache)
	mockPublisher := new(MockEventPublisher)
	service := newTestService(mockRepo, mockImages, mockCache, mockPublisher)

	reviewID := uuid.New()

	mockRepo.On("GetByID", mock.Anything, reviewID).Return(nil, domain.ErrNotFound)

	err := service.Delete(context.Background(), reviewID)

	assert.Equal(t, domain.ErrNotFound, err)
	mockRepo.AssertNotCalled(t, "SoftDelete")
}
