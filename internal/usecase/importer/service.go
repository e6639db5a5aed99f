package importer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-plugins/product-reviews/internal/domain"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

// JobsSubject is the JetStream subject import jobs are dispatched on
const JobsSubject = "imports.jobs"

// JobPublisher dispatches job messages to the import worker
type JobPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// JobMessage is the payload dispatched to the import worker
type JobMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Service creates import jobs and exposes their status. The heavy
// lifting happens in the worker via Strategy.
type Service struct {
	jobs      domain.BatchJobRepository
	publisher JobPublisher
	logger    *logger.Logger
}

// NewService creates a new import job service
func NewService(jobs domain.BatchJobRepository, publisher JobPublisher, log *logger.Logger) *Service {
	return &Service{
		jobs:      jobs,
		publisher: publisher,
		logger:    log,
	}
}

// CreateJob registers a new import job for an uploaded CSV file key and
// dispatches it to the worker queue. Dispatch happens after the row is
// committed; a dispatch failure fails the job so it is never stuck in
// created forever.
func (s *Service) CreateJob(ctx context.Context, fileKey string) (*domain.BatchJob, error) {
	fileKey = strings.TrimSpace(fileKey)
	if fileKey == "" {
		return nil, domain.ErrInvalidInput
	}

	job := &domain.BatchJob{
		Type:    domain.BatchJobTypeReviewImport,
		Status:  domain.BatchJobStatusCreated,
		Context: domain.BatchJobContext{FileKey: fileKey},
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		s.logger.Error("Failed to create import job", err)
		return nil, err
	}

	msg := JobMessage{
		JobID:     job.ID,
		Type:      job.Type,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, JobsSubject, data); err != nil {
		s.logger.Errorf(err, "Failed to dispatch import job %s", job.ID)
		if failErr := s.jobs.Fail(ctx, job.ID, "failed to dispatch job to worker queue"); failErr != nil {
			s.logger.Error("Failed to mark undispatched job as failed", failErr)
		}
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"job_id":   job.ID,
		"file_key": fileKey,
	}).Info("Import job created")

	return job, nil
}

// GetJob retrieves an import job by id
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*domain.BatchJob, error) {
	return s.jobs.GetByID(ctx, id)
}
