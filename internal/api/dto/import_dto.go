package dto

import (
	"time"

	"github.com/rodrigofm92/chamado-import-service/internal/domain"
)

// ImportAcceptedResponse acknowledges an accepted file import.
type ImportAcceptedResponse struct {
	BatchID string             `json:"batch_id"`
	Name    string             `json:"name"`
	Status  domain.BatchStatus `json:"status"`
}

// BatchResponse describes one import batch.
type BatchResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Status    domain.BatchStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

// EnrichmentCallbackRequest is the payload posted by the classifier once it
// has finished annotating a primary-dialect batch.
type EnrichmentCallbackRequest struct {
	BatchID  string                    `json:"batchId"`
	Chamados []EnrichmentResultPayload `json:"chamados"`
}

// EnrichmentResultPayload is one annotation inside the callback.
type EnrichmentResultPayload struct {
	TicketID string   `json:"ticketId"`
	Emotion  string   `json:"emotion"`
	Type     string   `json:"type"`
	Summary  *string  `json:"summary,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}
