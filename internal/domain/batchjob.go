package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BatchJobStatus is the lifecycle state of a batch job
type BatchJobStatus string

const (
	BatchJobStatusCreated       BatchJobStatus = "created"
	BatchJobStatusPreprocessing BatchJobStatus = "preprocessing"
	BatchJobStatusReady         BatchJobStatus = "ready"
	BatchJobStatusProcessing    BatchJobStatus = "processing"
	BatchJobStatusCompleted     BatchJobStatus = "completed"
	BatchJobStatusFailed        BatchJobStatus = "failed"
)

// BatchJobTypeReviewImport is the only job type this service runs
const BatchJobTypeReviewImport = "product-review-import"

// BatchJobContext holds the job's input, stored as JSONB
type BatchJobContext struct {
	FileKey string `json:"file_key"`
}

// StatDescriptor is a human-readable progress line shown in the admin UI
type StatDescriptor struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// BatchJobResult holds progress and outcome counters, stored as JSONB
type BatchJobResult struct {
	AdvancementCount int              `json:"advancement_count"`
	Count            int              `json:"count"`
	Operations       map[string]int   `json:"operations,omitempty"`
	StatDescriptors  []StatDescriptor `json:"stat_descriptors,omitempty"`
}

// BatchJob is one asynchronous CSV import run
type BatchJob struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Type        string          `json:"type" db:"type"`
	Status      BatchJobStatus  `json:"status" db:"status"`
	Context     BatchJobContext `json:"context" db:"context"`
	Result      BatchJobResult  `json:"result" db:"result"`
	FailureText *string         `json:"failure_text,omitempty" db:"failure_text"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// BatchJobRepository defines the interface for batch job persistence
type BatchJobRepository interface {
	Create(ctx context.Context, job *BatchJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*BatchJob, error)

	// SetStatus transitions the job, failing with ErrConflict unless the
	// job currently has the expected status
	SetStatus(ctx context.Context, id uuid.UUID, from, to BatchJobStatus) error

	// UpdateResult overwrites the result payload
	UpdateResult(ctx context.Context, id uuid.UUID, result BatchJobResult) error

	// Fail moves the job to the failed state with a reason
	Fail(ctx context.Context, id uuid.UUID, reason string) error
}

// Value implements driver.Valuer for JSONB storage
func (c BatchJobContext) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB storage
func (c *BatchJobContext) Scan(src any) error {
	return scanJSON(src, c)
}

// Value implements driver.Valuer for JSONB storage
func (r BatchJobResult) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB storage
func (r *BatchJobResult) Scan(src any) error {
	return scanJSON(src, r)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
