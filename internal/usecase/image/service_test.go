package image

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront-plugins/product-reviews/internal/domain"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

// MockImageRepository is a mock implementation of domain.ImageRepository
type MockImageRepository struct {
	mock.Mock
}

func (m *MockImageRepository) FindOrCreate(ctx context.Context, url string) (*domain.Image, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Image), args.Error(1)
}

func (m *MockImageRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Image, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Image), args.Error(1)
}

func (m *MockImageRepository) GetByReviewID(ctx context.Context, reviewID uuid.UUID) ([]*domain.Image, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Image), args.Error(1)
}

// captureFileStore records the upload call and returns a fixed URL
type captureFileStore struct {
	url         string
	key         string
	contentType string
}

func (s *captureFileStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	s.key = key
	s.contentType = contentType
	return s.url, nil
}

func (s *captureFileStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, domain.ErrNotFound
}

func (s *captureFileStore) Delete(ctx context.Context, key string) error {
	return nil
}

func TestService_Upsert_DeduplicatesURLs(t *testing.T) {
	mockRepo := new(MockImageRepository)
	service := NewService(mockRepo, nil, logger.New("test"))

	urlA := "https://cdn.example.com/a.jpg"
	urlB := "https://cdn.example.com/b.jpg"
	imageA := &domain.Image{ID: uuid.New(), URL: urlA}
	imageB := &domain.Image{ID: uuid.New(), URL: urlB}

	mockRepo.On("FindOrCreate", mock.Anything, urlA).Return(imageA, nil).Once()
	mockRepo.On("FindOrCreate", mock.Anything, urlB).Return(imageB, nil).Once()

	images, err := service.Upsert(context.Background(), []string{urlA, urlB, urlA, " ", urlB})

	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, imageA, images[0])
	assert.Equal(t, imageB, images[1])
	mockRepo.AssertExpectations(t)
}

func TestService_Upsert_NoURLs(t *testing.T) {
	mockRepo := new(MockImageRepository)
	service := NewService(mockRepo, nil, logger.New("test"))

	images, err := service.Upsert(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, images)
	mockRepo.AssertNotCalled(t, "FindOrCreate")
}

func TestService_ImportViaURL_StoresAndDeduplicates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	mockRepo := new(MockImageRepository)
	files := &captureFileStore{url: "https://storage.example.com/bucket/imports/images/photo.jpg"}
	service := NewService(mockRepo, files, logger.New("test"))

	stored := &domain.Image{ID: uuid.New(), URL: files.url}
	mockRepo.On("FindOrCreate", mock.Anything, files.url).Return(stored, nil)

	img, err := service.ImportViaURL(context.Background(), server.URL+"/photos/photo.jpg")

	require.NoError(t, err)
	assert.Equal(t, stored, img)
	assert.True(t, strings.HasPrefix(files.key, "imports/images/photo-"))
	assert.Equal(t, "image/jpeg", files.contentType)
	mockRepo.AssertExpectations(t)
}

func TestService_ImportViaURL_InvalidURL(t *testing.T) {
	mockRepo := new(MockImageRepository)
	service := NewService(mockRepo, nil, logger.New("test"))

	_, err := service.ImportViaURL(context.Background(), "not a url")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	mockRepo.AssertNotCalled(t, "FindOrCreate")
}

func TestService_ImportViaURL_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	mockRepo := new(MockImageRepository)
	service := NewService(mockRepo, nil, logger.New("test"))

	_, err := service.ImportViaURL(context.Background(), server.URL+"/gone.jpg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	mockRepo.AssertNotCalled(t, "FindOrCreate")
}
