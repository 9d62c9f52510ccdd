package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rodrigofm92/chamado-import-service/internal/domain"
	"github.com/rodrigofm92/chamado-import-service/internal/events"
	"github.com/rodrigofm92/chamado-import-service/internal/importer"
	"github.com/rodrigofm92/chamado-import-service/internal/observability"
	"github.com/rodrigofm92/chamado-import-service/internal/repository"
	apperrors "github.com/rodrigofm92/chamado-import-service/pkg/util"
)

// EnrichmentDispatcher sends imported ticket identifiers to the classifier.
type EnrichmentDispatcher interface {
	Dispatch(ctx context.Context, externalIDs []string, dialect domain.ImportDialect)
	DispatchAndMerge(ctx context.Context, batchID string, items []ClassificationItem)
}

// ImportService drives one file import end to end: batch record creation,
// row streaming through the normalizer and status mapper, the dual-store
// writes, the batch lifecycle transitions and the enrichment hand-off.
type ImportService struct {
	batches      repository.ImportBatchRepository
	tickets      repository.TicketRepository
	interactions repository.InteractionRepository
	enrichment   EnrichmentDispatcher
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// ImportDependencies bundles collaborators for the import service.
type ImportDependencies struct {
	BatchRepo       repository.ImportBatchRepository
	TicketRepo      repository.TicketRepository
	InteractionRepo repository.InteractionRepository
	Enrichment      EnrichmentDispatcher
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Logger          *zap.Logger
}

// NewImportService constructs the service.
func NewImportService(deps ImportDependencies) *ImportService {
	return &ImportService{
		batches:      deps.BatchRepo,
		tickets:      deps.TicketRepo,
		interactions: deps.InteractionRepo,
		enrichment:   deps.Enrichment,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
	}
}

// ImportPrimary ingests a primary-dialect CSV stream. Enrichment dispatch is
// fire-and-forget: a slow or unreachable classifier never blocks the import
// call, and the batch stays UNDER_REVIEW until the completion callback
// arrives.
func (s *ImportService) ImportPrimary(ctx context.Context, stream io.Reader, name string) (*domain.ImportBatch, error) {
	batch, err := s.createBatch(ctx, name, domain.DialectPrimary)
	if err != nil {
		return nil, err
	}

	result, err := s.ingest(ctx, stream, importer.PrimaryDialect, batch)
	if err != nil {
		s.failBatch(ctx, batch)
		return nil, err
	}

	if err := s.advanceBatch(ctx, batch, domain.BatchStatusUnderReview); err != nil {
		return nil, err
	}

	go s.enrichment.Dispatch(context.Background(), result.ExternalIDs, domain.DialectPrimary)

	return batch, nil
}

// ImportAlternative ingests an alternative-dialect CSV stream. The
// enrichment call is awaited so its response can be merged back immediately,
// after which the batch is DONE with no further external call.
func (s *ImportService) ImportAlternative(ctx context.Context, stream io.Reader, name string) (*domain.ImportBatch, error) {
	batch, err := s.createBatch(ctx, name, domain.DialectAlternative)
	if err != nil {
		return nil, err
	}

	result, err := s.ingest(ctx, stream, importer.AlternativeDialect, batch)
	if err != nil {
		s.failBatch(ctx, batch)
		return nil, err
	}

	if err := s.advanceBatch(ctx, batch, domain.BatchStatusUnderReview); err != nil {
		return nil, err
	}

	s.enrichment.DispatchAndMerge(ctx, batch.ID, result.Items)

	if err := s.advanceBatch(ctx, batch, domain.BatchStatusDone); err != nil {
		return nil, err
	}
	return batch, nil
}

// ListBatches returns all import batches, newest first.
func (s *ImportService) ListBatches(ctx context.Context) ([]domain.ImportBatch, error) {
	return s.batches.List(ctx)
}

// GetBatch returns one import batch.
func (s *ImportService) GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error) {
	return s.batches.GetByID(ctx, id)
}

type ingestResult struct {
	ExternalIDs []string
	Items       []ClassificationItem
	Imported    int
	Skipped     int
}

// ingest streams rows strictly sequentially: each row's store writes
// complete before the next row begins, so upsert correctness within one run
// never depends on unordered writes.
func (s *ImportService) ingest(ctx context.Context, stream io.Reader, dialect importer.Dialect, batch *domain.ImportBatch) (*ingestResult, error) {
	reader := csv.NewReader(stream)
	reader.Comma = dialect.Delimiter
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewFormatError("file is empty or unreadable", nil)
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	if missing := importer.MissingColumns(header, dialect); len(missing) > 0 {
		return nil, apperrors.NewFormatError(
			fmt.Sprintf("file does not match the expected %s layout", strings.ToLower(string(dialect.Name))),
			map[string]any{"missing_columns": missing},
		)
	}

	result := &ingestResult{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		row := importer.RowFromRecord(header, record)
		canonical, err := importer.Normalize(row, dialect)
		if err != nil {
			result.Skipped++
			s.metrics.RecordRowSkipped(string(dialect.Name))
			s.logger.Warn("skipping invalid row",
				zap.Int("line", line),
				zap.Error(err))
			continue
		}

		if err := s.persistRow(ctx, canonical, dialect, batch); err != nil {
			result.Skipped++
			s.metrics.RecordRowSkipped(string(dialect.Name))
			s.logger.Error("skipping row after store failure",
				zap.Int("line", line),
				zap.String("external_id", canonical.ExternalID),
				zap.Error(err))
			continue
		}

		result.Imported++
		result.ExternalIDs = append(result.ExternalIDs, canonical.ExternalID)
		if dialect.Name == domain.DialectAlternative {
			result.Items = append(result.Items, ClassificationItem{
				TicketID:    canonical.ExternalID,
				Description: canonical.Description,
			})
		}
	}

	s.metrics.RecordRowsImported(string(dialect.Name), result.Imported)
	s.publish(ctx, events.Event{
		Type:    events.EventImportRowsPersisted,
		BatchID: batch.ID,
		Payload: events.ImportRowsPersistedPayload{
			Dialect:  dialect.Name,
			Imported: result.Imported,
			Skipped:  result.Skipped,
		},
	})
	s.logger.Info("rows persisted",
		zap.String("batch_id", batch.ID),
		zap.String("dialect", string(dialect.Name)),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// persistRow issues the relational write first and the document write
// second. There is no shared transaction across the two stores: the upsert
// is idempotent, so a crash between the writes is recoverable by re-import,
// and the document store tolerates duplicate appends.
func (s *ImportService) persistRow(ctx context.Context, canonical importer.CanonicalRow, dialect importer.Dialect, batch *domain.ImportBatch) error {
	ticket := &domain.Ticket{
		ExternalID: canonical.ExternalID,
		Title:      canonical.Title,
		Status:     importer.MapStatus(canonical.RawStatus),
		OpenedAt:   canonical.OpenedAt,
		UpdatedAt:  canonical.UpdatedAt,
		Assignee:   canonical.Assignee,
		Dialect:    dialect.Name,
		BatchID:    batch.ID,
	}
	if err := s.tickets.Upsert(ctx, ticket); err != nil {
		return fmt.Errorf("upsert ticket: %w", err)
	}

	if dialect.Name == domain.DialectAlternative {
		interaction := &domain.AlternativeInteraction{
			TicketID:    canonical.ExternalID,
			Description: canonical.Description,
			Resolution:  canonical.Resolution,
			Origin:      string(dialect.Name),
			Actor:       canonical.Assignee,
		}
		if err := s.interactions.AppendAlternative(ctx, interaction); err != nil {
			return fmt.Errorf("append interaction: %w", err)
		}
		return nil
	}

	interaction := &domain.Interaction{
		TicketID: canonical.ExternalID,
		Body:     canonical.Description,
		Origin:   string(dialect.Name),
		Actor:    canonical.Assignee,
	}
	if err := s.interactions.Append(ctx, interaction); err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

func (s *ImportService) createBatch(ctx context.Context, name string, dialect domain.ImportDialect) (*domain.ImportBatch, error) {
	batch := &domain.ImportBatch{
		Name:   strings.TrimSpace(name),
		Status: domain.BatchStatusProcessing,
	}
	if batch.Name == "" {
		batch.Name = fmt.Sprintf("import-%s", time.Now().Format("2006-01-02-150405"))
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:    events.EventImportBatchCreated,
		BatchID: batch.ID,
		Payload: events.ImportBatchCreatedPayload{Name: batch.Name, Dialect: dialect},
	})
	return batch, nil
}

func (s *ImportService) advanceBatch(ctx context.Context, batch *domain.ImportBatch, status domain.BatchStatus) error {
	if err := s.batches.SetStatus(ctx, batch.ID, status); err != nil {
		return err
	}
	old := batch.Status
	batch.Status = status
	s.publish(ctx, events.Event{
		Type:    events.EventImportBatchStatusChanged,
		BatchID: batch.ID,
		Payload: events.ImportBatchStatusChangedPayload{OldStatus: old, NewStatus: status},
	})
	return nil
}

// failBatch marks the batch FAILED on a fatal parse or stream error. The
// original error is what surfaces to the caller, so a failure to record the
// status is only logged.
func (s *ImportService) failBatch(ctx context.Context, batch *domain.ImportBatch) {
	if err := s.batches.SetStatus(ctx, batch.ID, domain.BatchStatusFailed); err != nil {
		s.logger.Error("unable to mark batch failed",
			zap.String("batch_id", batch.ID),
			zap.Error(err))
		return
	}
	old := batch.Status
	batch.Status = domain.BatchStatusFailed
	s.publish(ctx, events.Event{
		Type:    events.EventImportBatchStatusChanged,
		BatchID: batch.ID,
		Payload: events.ImportBatchStatusChangedPayload{OldStatus: old, NewStatus: domain.BatchStatusFailed},
	})
}

func (s *ImportService) publish(ctx context.Context, event events.Event) {
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
