package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/storefront-plugins/product-reviews/internal/domain"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

// Operation list names
const (
	opCreate = "create"
	opUpdate = "update"
)

// ReviewWriter applies import rows through the review service so image
// resolution, transactions and event publishing behave exactly as for
// API-created reviews.
type ReviewWriter interface {
	Create(ctx context.Context, input *domain.CreateReviewInput) (*domain.Review, error)
	Update(ctx context.Context, input *domain.UpdateReviewInput) (*domain.Review, error)
}

// ImageImporter copies remote images into platform storage
type ImageImporter interface {
	ImportViaURL(ctx context.Context, url string) (*domain.Image, error)
}

// Strategy runs a CSV review import job through its three phases:
// PreProcess parses and partitions the source file, Process replays the
// operation lists through the review service, Finalize cleans up.
type Strategy struct {
	jobs           domain.BatchJobRepository
	reviews        ReviewWriter
	images         ImageImporter
	files          domain.FileStore
	checkpointRows int
	logger         *logger.Logger
}

// NewStrategy creates a new import strategy
func NewStrategy(
	jobs domain.BatchJobRepository,
	reviews ReviewWriter,
	images ImageImporter,
	files domain.FileStore,
	checkpointRows int,
	log *logger.Logger,
) *Strategy {
	if checkpointRows <= 0 {
		checkpointRows = 15
	}
	return &Strategy{
		jobs:           jobs,
		reviews:        reviews,
		images:         images,
		files:          files,
		checkpointRows: checkpointRows,
		logger:         log,
	}
}

// RunJob executes the full pipeline for one job. A job already past the
// created state (a redelivered message) is left alone.
func (s *Strategy) RunJob(ctx context.Context, jobID uuid.UUID) error {
	if err := s.PreProcess(ctx, jobID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Warnf("Import job %s already claimed, skipping", jobID)
			return nil
		}
		return err
	}

	if err := s.Process(ctx, jobID); err != nil {
		return err
	}

	return s.Finalize(ctx, jobID)
}

// PreProcess downloads and parses the source CSV, partitions rows into
// create/update operation lists (first occurrence per review identity
// wins) and uploads each list as a JSON ops file.
func (s *Strategy) PreProcess(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	if err := s.jobs.SetStatus(ctx, jobID, domain.BatchJobStatusCreated, domain.BatchJobStatusPreprocessing); err != nil {
		return err
	}

	source, err := s.files.Download(ctx, job.Context.FileKey)
	if err != nil {
		return s.fail(ctx, jobID, fmt.Errorf("failed to download source file %s: %w", job.Context.FileKey, err))
	}
	defer source.Close()

	rows, err := ParseRows(source)
	if err != nil {
		return s.fail(ctx, jobID, err)
	}

	creates, updates := partition(rows)

	if err := s.uploadOps(ctx, jobID, opCreate, creates); err != nil {
		return s.fail(ctx, jobID, err)
	}
	if err := s.uploadOps(ctx, jobID, opUpdate, updates); err != nil {
		return s.fail(ctx, jobID, err)
	}

	total := len(creates) + len(updates)
	result := domain.BatchJobResult{
		AdvancementCount: 0,
		Count:            total,
		Operations: map[string]int{
			opCreate: len(creates),
			opUpdate: len(updates),
		},
		StatDescriptors: []domain.StatDescriptor{
			{
				Key:     "product-review-import-count",
				Name:    "Review count to import",
				Message: fmt.Sprintf("%d review rows will be imported (%d created, %d updated)", total, len(creates), len(updates)),
			},
		},
	}

	if err := s.jobs.UpdateResult(ctx, jobID, result); err != nil {
		return err
	}

	if err := s.jobs.SetStatus(ctx, jobID, domain.BatchJobStatusPreprocessing, domain.BatchJobStatusReady); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"job_id":  jobID,
		"creates": len(creates),
		"updates": len(updates),
	}).Info("Import job preprocessed")

	return nil
}

// Process replays the operation lists sequentially through the review
// service, importing remote images as it goes. A row failure fails the
// whole job; progress is checkpointed to the job row periodically.
func (s *Strategy) Process(ctx context.Context, jobID uuid.UUID) error {
	if err := s.jobs.SetStatus(ctx, jobID, domain.BatchJobStatusReady, domain.BatchJobStatusProcessing); err != nil {
		return err
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	creates, err := s.downloadOps(ctx, jobID, opCreate)
	if err != nil {
		return s.fail(ctx, jobID, err)
	}
	updates, err := s.downloadOps(ctx, jobID, opUpdate)
	if err != nil {
		return s.fail(ctx, jobID, err)
	}

	result := job.Result
	processed := 0

	checkpoint := func() error {
		result.AdvancementCount = processed
		return s.jobs.UpdateResult(ctx, jobID, result)
	}

	for i, row := range creates {
		images := s.importImages(ctx, row.Images)

		input := &domain.CreateReviewInput{
			ProductID:        row.ProductID,
			ProductVariantID: row.ProductVariantID,
			CustomerID:       row.CustomerID,
			OrderID:          row.OrderID,
			Rating:           row.Rating,
			Content:          row.Content,
			Images:           images,
		}

		if _, err := s.reviews.Create(ctx, input); err != nil {
			return s.fail(ctx, jobID, fmt.Errorf("failed to create review for row %d (product %s): %w", i+1, row.ProductID, err))
		}

		processed++
		if processed%s.checkpointRows == 0 {
			if err := checkpoint(); err != nil {
				return err
			}
		}
	}

	for i, row := range updates {
		images := s.importImages(ctx, row.Images)

		input := &domain.UpdateReviewInput{
			ID:      *row.ID,
			Rating:  row.Rating,
			Content: row.Content,
			Images:  images,
		}

		if _, err := s.reviews.Update(ctx, input); err != nil {
			return s.fail(ctx, jobID, fmt.Errorf("failed to update review %s for row %d: %w", row.ID, i+1, err))
		}

		processed++
		if processed%s.checkpointRows == 0 {
			if err := checkpoint(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Finalize marks every row advanced, removes the ops files and the
// source CSV and completes the job.
func (s *Strategy) Finalize(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	result := job.Result
	result.AdvancementCount = result.Count
	if err := s.jobs.UpdateResult(ctx, jobID, result); err != nil {
		return err
	}

	for _, op := range []string{opCreate, opUpdate} {
		if err := s.files.Delete(ctx, opsKey(jobID, op)); err != nil {
			s.logger.Warnf("Failed to delete ops file for job %s: %v", jobID, err)
		}
	}
	if err := s.files.Delete(ctx, job.Context.FileKey); err != nil {
		s.logger.Warnf("Failed to delete source file %s: %v", job.Context.FileKey, err)
	}

	if err := s.jobs.SetStatus(ctx, jobID, domain.BatchJobStatusProcessing, domain.BatchJobStatusCompleted); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"job_id": jobID,
		"count":  result.Count,
	}).Info("Import job completed")

	return nil
}

// importImages copies remote images into platform storage, skipping
// failures so a dead image link never sinks the row
func (s *Strategy) importImages(ctx context.Context, urls []string) []string {
	stored := make([]string, 0, len(urls))
	for _, u := range urls {
		img, err := s.images.ImportViaURL(ctx, u)
		if err != nil {
			s.logger.Warnf("Skipping image %s: %v", u, err)
			continue
		}
		stored = append(stored, img.URL)
	}
	return stored
}

func (s *Strategy) fail(ctx context.Context, jobID uuid.UUID, cause error) error {
	s.logger.Errorf(cause, "Import job %s failed", jobID)
	if err := s.jobs.Fail(ctx, jobID, cause.Error()); err != nil {
		s.logger.Error("Failed to mark import job as failed", err)
	}
	return cause
}

func (s *Strategy) uploadOps(ctx context.Context, jobID uuid.UUID, op string, rows []ImportRow) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal %s ops: %w", op, err)
	}

	if _, err := s.files.Upload(ctx, opsKey(jobID, op), bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("failed to upload %s ops file: %w", op, err)
	}
	return nil
}

func (s *Strategy) downloadOps(ctx context.Context, jobID uuid.UUID, op string) ([]ImportRow, error) {
	body, err := s.files.Download(ctx, opsKey(jobID, op))
	if err != nil {
		return nil, fmt.Errorf("failed to download %s ops file: %w", op, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s ops file: %w", op, err)
	}

	var rows []ImportRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s ops file: %w", op, err)
	}
	return rows, nil
}

func opsKey(jobID uuid.UUID, op string) string {
	return fmt.Sprintf("imports/product-reviews/ops/%s-%s.json", jobID, op)
}

// partition splits rows into create and update operation lists. The
// first occurrence of a review identity wins; later duplicates are
// dropped. Rows carrying an id are updates, the rest creates.
func partition(rows []ImportRow) (creates, updates []ImportRow) {
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		key := row.IdentityKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		if row.ID != nil {
			updates = append(updates, row)
		} else {
			creates = append(creates, row)
		}
	}
	return creates, updates
}
