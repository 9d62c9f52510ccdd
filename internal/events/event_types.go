package events

import (
	"time"

	"github.com/rodrigofm92/chamado-import-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventImportBatchCreated       EventType = "import_batch_created"
	EventImportBatchStatusChanged EventType = "import_batch_status_changed"
	EventImportRowsPersisted      EventType = "import_rows_persisted"
	EventEnrichmentMerged         EventType = "enrichment_merged"
)

// Event represents a pipeline event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	BatchID   string      `json:"batch_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ImportBatchCreatedPayload payload.
type ImportBatchCreatedPayload struct {
	Name    string               `json:"name"`
	Dialect domain.ImportDialect `json:"dialect"`
}

// ImportBatchStatusChangedPayload payload.
type ImportBatchStatusChangedPayload struct {
	OldStatus domain.BatchStatus `json:"old_status"`
	NewStatus domain.BatchStatus `json:"new_status"`
}

// ImportRowsPersistedPayload payload.
type ImportRowsPersistedPayload struct {
	Dialect  domain.ImportDialect `json:"dialect"`
	Imported int                  `json:"imported"`
	Skipped  int                  `json:"skipped"`
}

// EnrichmentMergedPayload payload.
type EnrichmentMergedPayload struct {
	Merged int `json:"merged"`
	Failed int `json:"failed"`
}
