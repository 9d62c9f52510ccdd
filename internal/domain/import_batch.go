package domain

import "time"

// BatchStatus enumerates the lifecycle of one uploaded file.
type BatchStatus string

const (
	BatchStatusProcessing  BatchStatus = "PROCESSING"
	BatchStatusUnderReview BatchStatus = "UNDER_REVIEW"
	BatchStatusDone        BatchStatus = "DONE"
	BatchStatusFailed      BatchStatus = "FAILED"
)

// ImportBatch tracks one file upload through the ingestion pipeline. Status
// only advances for a given batch; batches are never deleted.
type ImportBatch struct {
	ID        string
	Name      string
	Status    BatchStatus
	CreatedAt time.Time
}
