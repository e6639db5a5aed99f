package image

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-plugins/product-reviews/internal/domain"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

// Service resolves review image attachments: URL deduplication against
// the image table and imports of remote images into platform storage.
type Service struct {
	repo   domain.ImageRepository
	files  domain.FileStore
	client *http.Client
	logger *logger.Logger
}

// NewService creates a new image service
func NewService(repo domain.ImageRepository, files domain.FileStore, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		files:  files,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log,
	}
}

// Upsert finds-or-creates image rows for the given URLs, preserving
// input order. A URL repeated in the input or already known in the
// table resolves to the same row.
func (s *Service) Upsert(ctx context.Context, urls []string) ([]*domain.Image, error) {
	if len(urls) == 0 {
		return []*domain.Image{}, nil
	}

	images := make([]*domain.Image, 0, len(urls))
	seen := make(map[string]bool, len(urls))

	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true

		img, err := s.repo.FindOrCreate(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve image %s: %w", u, err)
		}
		images = append(images, img)
	}

	return images, nil
}

// GetByIDs retrieves images by id
func (s *Service) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Image, error) {
	return s.repo.GetByIDs(ctx, ids)
}

// ImportViaURL fetches a remote image, streams it into the object store
// and returns the deduplicated image row for the stored copy.
func (s *Service) ImportViaURL(ctx context.Context, importURL string) (*domain.Image, error) {
	parsed, err := url.Parse(importURL)
	if err != nil || parsed.Scheme == "" {
		return nil, fmt.Errorf("invalid image url %q: %w", importURL, domain.ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, importURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image %s: %w", importURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image %s: status %d", importURL, resp.StatusCode)
	}

	name, ext := splitFilename(parsed.Path)
	key := fmt.Sprintf("imports/images/%s-%d%s", name, time.Now().UnixNano(), ext)

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	storedURL, err := s.files.Upload(ctx, key, resp.Body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store image %s: %w", importURL, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"source": importURL,
		"key":    key,
	}).Debug("Imported remote image")

	return s.repo.FindOrCreate(ctx, storedURL)
}

// splitFilename returns the base name and extension of a URL path,
// falling back to a generic name for extension-less paths
func splitFilename(p string) (string, string) {
	base := path.Base(p)
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" || name == "." || name == "/" {
		name = "image"
	}
	return name, ext
}
