package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rodrigofm92/chamado-import-service/internal/config"
	"github.com/rodrigofm92/chamado-import-service/internal/domain"
	"github.com/rodrigofm92/chamado-import-service/internal/events"
	"github.com/rodrigofm92/chamado-import-service/internal/observability"
	"github.com/rodrigofm92/chamado-import-service/internal/repository"
)

// dispatchBatchSize bounds request payload size and per-call latency against
// the remote classifier.
const dispatchBatchSize = 100

// ClassificationItem pairs a ticket identifier with the text to classify.
type ClassificationItem struct {
	TicketID    string
	Description string
}

// EnrichmentResult is one annotation delivered by the classifier, either in
// the awaited prediction response or through the completion callback.
type EnrichmentResult struct {
	TicketID  string
	Sentiment string
	Type      string
	Summary   *string
	Keywords  []string
}

// EnrichmentService batches ticket identifiers to the remote classification
// service and merges its annotations back onto tickets. Dispatch failures are
// logged and never propagate: import success is defined by rows persisted,
// not by enrichment.
type EnrichmentService struct {
	cfg        config.ClassifierConfig
	client     *http.Client
	predict    *http.Client
	tickets    repository.TicketRepository
	batches    repository.ImportBatchRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// EnrichmentDependencies bundles collaborators for the enrichment service.
type EnrichmentDependencies struct {
	TicketRepo repository.TicketRepository
	BatchRepo  repository.ImportBatchRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewEnrichmentService constructs the service.
func NewEnrichmentService(cfg config.ClassifierConfig, deps EnrichmentDependencies) *EnrichmentService {
	return &EnrichmentService{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.RequestTimeout()},
		predict:    &http.Client{Timeout: cfg.PredictTimeout()},
		tickets:    deps.TicketRepo,
		batches:    deps.BatchRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

type classifyRequest struct {
	IDs []string `json:"ids"`
}

type predictRequest struct {
	Chamados []predictItem `json:"chamados"`
}

type predictItem struct {
	ChamadoID string `json:"chamadoId"`
	Descricao string `json:"descricao"`
}

type predictResponse struct {
	Chamados []predictResult `json:"chamados"`
}

type predictResult struct {
	ChamadoID   string `json:"chamadoId"`
	Emocao      string `json:"emocao"`
	TipoChamado string `json:"tipoChamado"`
}

// Dispatch posts identifier batches to the classifier and does not wait for
// the classification itself: the merge for this path arrives later through
// CompleteBatch. A failed batch is logged and the remaining batches are still
// sent.
func (s *EnrichmentService) Dispatch(ctx context.Context, externalIDs []string, dialect domain.ImportDialect) {
	endpoint := "/process"
	if dialect == domain.DialectAlternative {
		endpoint = "/process-alternative"
	}

	for _, chunk := range chunkStrings(externalIDs, dispatchBatchSize) {
		if err := s.post(ctx, s.client, endpoint, classifyRequest{IDs: chunk}, nil); err != nil {
			s.metrics.RecordDispatchFailure(endpoint)
			s.logger.Warn("classifier dispatch failed",
				zap.String("endpoint", endpoint),
				zap.Int("batch_size", len(chunk)),
				zap.Error(err))
			continue
		}
		s.logger.Info("classifier dispatch sent",
			zap.String("endpoint", endpoint),
			zap.Int("batch_size", len(chunk)))
	}
}

// DispatchAndMerge posts identifier/description batches to the prediction
// endpoint and merges each returned annotation immediately. The call is
// awaited with a long timeout because remote classification is
// compute-heavy; a remote failure for one batch does not stop the next.
func (s *EnrichmentService) DispatchAndMerge(ctx context.Context, batchID string, items []ClassificationItem) {
	merged, failed := 0, 0
	for _, chunk := range chunkItems(items, dispatchBatchSize) {
		req := predictRequest{Chamados: make([]predictItem, 0, len(chunk))}
		for _, item := range chunk {
			req.Chamados = append(req.Chamados, predictItem{ChamadoID: item.TicketID, Descricao: item.Description})
		}

		var resp predictResponse
		if err := s.post(ctx, s.predict, "/prever", req, &resp); err != nil {
			s.metrics.RecordDispatchFailure("/prever")
			s.logger.Warn("classifier prediction failed",
				zap.Int("batch_size", len(chunk)),
				zap.Error(err))
			continue
		}

		for _, result := range resp.Chamados {
			if s.merge(ctx, EnrichmentResult{
				TicketID:  result.ChamadoID,
				Sentiment: result.Emocao,
				Type:      result.TipoChamado,
			}) {
				merged++
			} else {
				failed++
			}
		}
	}

	if merged > 0 || failed > 0 {
		s.publish(ctx, events.Event{
			Type:    events.EventEnrichmentMerged,
			BatchID: batchID,
			Payload: events.EnrichmentMergedPayload{Merged: merged, Failed: failed},
		})
	}
}

// CompleteBatch applies the annotations delivered by the classifier callback
// and flips the batch to DONE. Per-identifier merge failures are logged and
// recorded, never fatal to the batch of merges in progress.
func (s *EnrichmentService) CompleteBatch(ctx context.Context, batchID string, results []EnrichmentResult) error {
	merged, failed := 0, 0
	for _, result := range results {
		if s.merge(ctx, result) {
			merged++
		} else {
			failed++
		}
	}

	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if err := s.batches.SetStatus(ctx, batchID, domain.BatchStatusDone); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:    events.EventImportBatchStatusChanged,
		BatchID: batchID,
		Payload: events.ImportBatchStatusChangedPayload{
			OldStatus: batch.Status,
			NewStatus: domain.BatchStatusDone,
		},
	})
	s.publish(ctx, events.Event{
		Type:    events.EventEnrichmentMerged,
		BatchID: batchID,
		Payload: events.EnrichmentMergedPayload{Merged: merged, Failed: failed},
	})
	s.logger.Info("enrichment results reconciled",
		zap.String("batch_id", batchID),
		zap.Int("merged", merged),
		zap.Int("failed", failed))
	return nil
}

func (s *EnrichmentService) merge(ctx context.Context, result EnrichmentResult) bool {
	_, err := s.tickets.MergeEnrichment(ctx, result.TicketID, domain.Enrichment{
		Sentiment: result.Sentiment,
		Type:      result.Type,
		Summary:   result.Summary,
		Keywords:  result.Keywords,
	})
	if err != nil {
		s.metrics.RecordMergeFailure()
		s.logger.Error("enrichment merge failed",
			zap.String("external_id", result.TicketID),
			zap.Error(err))
		return false
	}
	return true
}

func (s *EnrichmentService) post(ctx context.Context, client *http.Client, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *EnrichmentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func chunkStrings(values []string, size int) [][]string {
	var chunks [][]string
	for len(values) > size {
		chunks = append(chunks, values[:size])
		values = values[size:]
	}
	if len(values) > 0 {
		chunks = append(chunks, values)
	}
	return chunks
}

func chunkItems(values []ClassificationItem, size int) [][]ClassificationItem {
	var chunks [][]ClassificationItem
	for len(values) > size {
		chunks = append(chunks, values[:size])
		values = values[size:]
	}
	if len(values) > 0 {
		chunks = append(chunks, values)
	}
	return chunks
}
