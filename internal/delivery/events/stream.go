package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

const (
	// ReviewStreamName is the JetStream stream carrying review domain events
	ReviewStreamName = "REVIEWS"

	// ReviewEventsSubject is the subject review mutations are published to
	ReviewEventsSubject = "reviews.events"

	// ImportStreamName is the JetStream stream carrying batch import jobs
	ImportStreamName = "IMPORTS"

	// ImportJobsSubject is the subject new import jobs are published to
	ImportJobsSubject = "imports.jobs"

	// ImportConsumerName is the durable consumer for the import worker
	ImportConsumerName = "import-worker"

	// ImportMaxDeliveryAttempts bounds redeliveries of a job message.
	// A job that failed is marked failed in the database; replaying it
	// would hit the status guard and no-op.
	ImportMaxDeliveryAttempts = 3

	// ImportAckWait is generous because a job processes a whole CSV
	ImportAckWait = 10 * time.Minute
)

// StreamConfig holds the JetStream stream configuration helpers
type StreamConfig struct {
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewStreamConfig creates a new stream configuration helper
func NewStreamConfig(js nats.JetStreamContext, log *logger.Logger) *StreamConfig {
	return &StreamConfig{
		js:     js,
		logger: log,
	}
}

// EnsureReviewStream creates the review events stream if missing.
// Events are observational (webhooks, notifiers), so a bounded age is
// enough.
func (s *StreamConfig) EnsureReviewStream() error {
	return s.ensureStream(&nats.StreamConfig{
		Name:        ReviewStreamName,
		Subjects:    []string{ReviewEventsSubject},
		Retention:   nats.LimitsPolicy,
		Storage:     nats.FileStorage,
		Replicas:    1,
		MaxAge:      24 * time.Hour,
		Discard:     nats.DiscardOld,
		Description: "Product review domain events",
	})
}

// EnsureImportStream creates the import jobs work queue stream if missing
func (s *StreamConfig) EnsureImportStream() error {
	return s.ensureStream(&nats.StreamConfig{
		Name:        ImportStreamName,
		Subjects:    []string{ImportJobsSubject},
		Retention:   nats.WorkQueuePolicy,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Discard:     nats.DiscardOld,
		Description: "Product review CSV import jobs",
	})
}

// EnsureImportConsumer creates the durable consumer the import worker
// pulls jobs from
func (s *StreamConfig) EnsureImportConsumer() error {
	_, err := s.js.ConsumerInfo(ImportStreamName, ImportConsumerName)

	if errors.Is(err, nats.ErrConsumerNotFound) {
		s.logger.WithFields(map[string]interface{}{
			"stream":   ImportStreamName,
			"consumer": ImportConsumerName,
		}).Info("Creating JetStream consumer")

		_, err = s.js.AddConsumer(ImportStreamName, &nats.ConsumerConfig{
			Durable:       ImportConsumerName,
			AckPolicy:     nats.AckExplicitPolicy,
			AckWait:       ImportAckWait,
			MaxDeliver:    ImportMaxDeliveryAttempts,
			FilterSubject: ImportJobsSubject,
			BackOff:       generateExponentialBackoff(ImportMaxDeliveryAttempts),
			Description:   "Import worker consumer for batch import jobs",
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}

		s.logger.Info("JetStream consumer created successfully")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}

	return nil
}

func (s *StreamConfig) ensureStream(cfg *nats.StreamConfig) error {
	stream, err := s.js.StreamInfo(cfg.Name)

	if errors.Is(err, nats.ErrStreamNotFound) {
		s.logger.WithFields(map[string]interface{}{
			"stream":   cfg.Name,
			"subjects": cfg.Subjects,
		}).Info("Creating JetStream stream")

		if _, err := s.js.AddStream(cfg); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
		}
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"stream":   stream.Config.Name,
		"messages": stream.State.Msgs,
	}).Info("JetStream stream already exists")

	return nil
}

// generateExponentialBackoff creates a redelivery backoff schedule:
// 1s, 2s, 4s, ... MaxDeliver N requires N-1 durations.
func generateExponentialBackoff(maxDeliveryAttempts int) []time.Duration {
	if maxDeliveryAttempts <= 1 {
		return nil
	}

	backoff := make([]time.Duration, maxDeliveryAttempts-1)
	for i := range backoff {
		backoff[i] = time.Duration(1<<i) * time.Second
	}
	return backoff
}
