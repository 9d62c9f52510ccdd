package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rodrigofm92/chamado-import-service/internal/domain"
	"github.com/rodrigofm92/chamado-import-service/internal/service"
	apperrors "github.com/rodrigofm92/chamado-import-service/pkg/util"
)

// ---- fakes -----------------------------------------------------------------

type fakeTicketRepo struct {
	mu        sync.Mutex
	tickets   map[string]*domain.Ticket
	upserts   int
	merges    map[string]domain.Enrichment
	mergeErrs map[string]error
	nextID    int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets:   make(map[string]*domain.Ticket),
		merges:    make(map[string]domain.Enrichment),
		mergeErrs: make(map[string]error),
	}
}

func (f *fakeTicketRepo) Upsert(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if existing, ok := f.tickets[ticket.ExternalID]; ok {
		ticket.ID = existing.ID
		ticket.Sentiment = existing.Sentiment
		ticket.Type = existing.Type
		copied := *ticket
		f.tickets[ticket.ExternalID] = &copied
		return nil
	}
	f.nextID++
	ticket.ID = fmt.Sprintf("t-%d", f.nextID)
	copied := *ticket
	f.tickets[ticket.ExternalID] = &copied
	return nil
}

func (f *fakeTicketRepo) MergeEnrichment(_ context.Context, externalID string, enrichment domain.Enrichment) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mergeErrs[externalID]; err != nil {
		return 0, err
	}
	f.merges[externalID] = enrichment
	if ticket, ok := f.tickets[externalID]; ok {
		sentiment, typ := enrichment.Sentiment, enrichment.Type
		ticket.Sentiment = &sentiment
		ticket.Type = &typ
		return 1, nil
	}
	return 0, nil
}

func (f *fakeTicketRepo) GetByExternalID(_ context.Context, externalID string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[externalID]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) ListByBatch(_ context.Context, batchID string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if ticket.BatchID == batchID {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

func (f *fakeTicketRepo) ListAll(context.Context, int, int) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) ListByStatus(context.Context, domain.TicketStatus) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) ListBySentiment(context.Context, string) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) ListByDialect(context.Context, domain.ImportDialect) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickets)
}

type fakeBatchRepo struct {
	mu      sync.Mutex
	batches map[string]*domain.ImportBatch
	history []domain.BatchStatus
	nextID  int
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[string]*domain.ImportBatch)}
}

func (f *fakeBatchRepo) Create(_ context.Context, batch *domain.ImportBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	batch.ID = fmt.Sprintf("batch-%d", f.nextID)
	batch.CreatedAt = time.Now()
	copied := *batch
	f.batches[batch.ID] = &copied
	return nil
}

func (f *fakeBatchRepo) SetStatus(_ context.Context, id string, status domain.BatchStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch, ok := f.batches[id]
	if !ok {
		return errors.New("batch not found")
	}
	batch.Status = status
	f.history = append(f.history, status)
	return nil
}

func (f *fakeBatchRepo) GetByID(_ context.Context, id string) (*domain.ImportBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch, ok := f.batches[id]
	if !ok {
		return nil, errors.New("batch not found")
	}
	copied := *batch
	return &copied, nil
}

func (f *fakeBatchRepo) List(context.Context) ([]domain.ImportBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.ImportBatch
	for _, batch := range f.batches {
		result = append(result, *batch)
	}
	return result, nil
}

func (f *fakeBatchRepo) status(id string) domain.BatchStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches[id].Status
}

type fakeInteractionRepo struct {
	mu          sync.Mutex
	primary     []domain.Interaction
	alternative []domain.AlternativeInteraction
}

func (f *fakeInteractionRepo) Append(_ context.Context, interaction *domain.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.primary = append(f.primary, *interaction)
	return nil
}

func (f *fakeInteractionRepo) AppendAlternative(_ context.Context, interaction *domain.AlternativeInteraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alternative = append(f.alternative, *interaction)
	return nil
}

func (f *fakeInteractionRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Interaction
	for _, interaction := range f.primary {
		if interaction.TicketID == ticketID {
			result = append(result, interaction)
		}
	}
	return result, nil
}

func (f *fakeInteractionRepo) ListAlternativeByTicket(_ context.Context, ticketID string) ([]domain.AlternativeInteraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.AlternativeInteraction
	for _, interaction := range f.alternative {
		if interaction.TicketID == ticketID {
			result = append(result, interaction)
		}
	}
	return result, nil
}

type dispatchCall struct {
	ids     []string
	dialect domain.ImportDialect
}

type mergeCall struct {
	batchID string
	items   []service.ClassificationItem
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatched chan dispatchCall
	merged     []mergeCall
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{dispatched: make(chan dispatchCall, 8)}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, externalIDs []string, dialect domain.ImportDialect) {
	ids := append([]string{}, externalIDs...)
	f.dispatched <- dispatchCall{ids: ids, dialect: dialect}
}

func (f *fakeDispatcher) DispatchAndMerge(_ context.Context, batchID string, items []service.ClassificationItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged = append(f.merged, mergeCall{
		batchID: batchID,
		items:   append([]service.ClassificationItem{}, items...),
	})
}

func (f *fakeDispatcher) waitDispatch(t *testing.T) dispatchCall {
	t.Helper()
	select {
	case call := <-f.dispatched:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("enrichment dispatch was never fired")
		return dispatchCall{}
	}
}

// ---- helpers ---------------------------------------------------------------

type importFixture struct {
	tickets      *fakeTicketRepo
	batches      *fakeBatchRepo
	interactions *fakeInteractionRepo
	enrichment   *fakeDispatcher
	service      *service.ImportService
}

func newImportFixture() *importFixture {
	tickets := newFakeTicketRepo()
	batches := newFakeBatchRepo()
	interactions := &fakeInteractionRepo{}
	enrichment := newFakeDispatcher()
	importService := service.NewImportService(service.ImportDependencies{
		BatchRepo:       batches,
		TicketRepo:      tickets,
		InteractionRepo: interactions,
		Enrichment:      enrichment,
		Logger:          zap.NewNop(),
	})
	return &importFixture{
		tickets:      tickets,
		batches:      batches,
		interactions: interactions,
		enrichment:   enrichment,
		service:      importService,
	}
}

const primaryHeader = "Resumo,ID da item,Status,Criado,Categoria do status alterada,Responsável,Descrição\n"

// ---- tests -----------------------------------------------------------------

func TestImportPrimaryScenario(t *testing.T) {
	csvData := primaryHeader +
		"Login não funciona,JRA-1,Resolvido,01/Jan/24 10:00 AM,02/Jan/24 11:00 AM,Ana Souza,Erro de senha\n" +
		",JRA-2,Sob análise,03/Jan/24 09:15 AM,03/Jan/24 04:20 PM,,\n"

	f := newImportFixture()
	batch, err := f.service.ImportPrimary(context.Background(), strings.NewReader(csvData), "export-janeiro")
	if err != nil {
		t.Fatalf("ImportPrimary returned error: %v", err)
	}

	if got := f.batches.status(batch.ID); got != domain.BatchStatusUnderReview {
		t.Errorf("batch status = %q, want %q", got, domain.BatchStatusUnderReview)
	}

	first, err := f.tickets.GetByExternalID(context.Background(), "JRA-1")
	if err != nil {
		t.Fatalf("JRA-1 not persisted: %v", err)
	}
	if first.Status != domain.TicketStatusConcluded {
		t.Errorf("JRA-1 status = %q, want %q", first.Status, domain.TicketStatusConcluded)
	}
	if first.BatchID != batch.ID {
		t.Errorf("JRA-1 batch = %q, want %q", first.BatchID, batch.ID)
	}

	second, err := f.tickets.GetByExternalID(context.Background(), "JRA-2")
	if err != nil {
		t.Fatalf("JRA-2 not persisted: %v", err)
	}
	if second.Status != domain.TicketStatusOpen {
		t.Errorf("JRA-2 status = %q, want %q", second.Status, domain.TicketStatusOpen)
	}
	if second.Title != "Sem Título" || second.Assignee != "Não Informado" {
		t.Errorf("JRA-2 fallbacks not applied: title=%q assignee=%q", second.Title, second.Assignee)
	}

	if len(f.interactions.primary) != 2 {
		t.Errorf("interactions appended = %d, want 2", len(f.interactions.primary))
	}

	call := f.enrichment.waitDispatch(t)
	if call.dialect != domain.DialectPrimary {
		t.Errorf("dispatch dialect = %q, want %q", call.dialect, domain.DialectPrimary)
	}
	if len(call.ids) != 2 || call.ids[0] != "JRA-1" || call.ids[1] != "JRA-2" {
		t.Errorf("dispatched ids = %v, want [JRA-1 JRA-2]", call.ids)
	}
}

func TestImportPrimaryStripsByteOrderMark(t *testing.T) {
	csvData := "\uFEFF" + primaryHeader +
		"Erro no acesso,JRA-7,Resolvido,01/Jan/24 10:00 AM,02/Jan/24 11:00 AM,Ana,corpo\n"

	f := newImportFixture()
	batch, err := f.service.ImportPrimary(context.Background(), strings.NewReader(csvData), "exportado-excel")
	if err != nil {
		t.Fatalf("ImportPrimary rejected a BOM-prefixed file: %v", err)
	}
	if got := f.batches.status(batch.ID); got != domain.BatchStatusUnderReview {
		t.Errorf("batch status = %q, want %q", got, domain.BatchStatusUnderReview)
	}
	if _, err := f.tickets.GetByExternalID(context.Background(), "JRA-7"); err != nil {
		t.Errorf("JRA-7 not persisted: %v", err)
	}
	f.enrichment.waitDispatch(t)
}

func TestImportPrimaryRejectsWrongHeader(t *testing.T) {
	csvData := "Coluna A,Coluna B\nx,y\n"

	f := newImportFixture()
	_, err := f.service.ImportPrimary(context.Background(), strings.NewReader(csvData), "arquivo-errado")
	if err == nil {
		t.Fatal("ImportPrimary accepted a file with the wrong header")
	}

	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code != "FORMAT_ERROR" {
		t.Errorf("error code = %q, want FORMAT_ERROR", domainErr.Code)
	}
	if f.tickets.upserts != 0 {
		t.Errorf("ticket store was called %d times before header validation", f.tickets.upserts)
	}
	if len(f.batches.history) != 1 || f.batches.history[0] != domain.BatchStatusFailed {
		t.Errorf("batch transitions = %v, want [FAILED]", f.batches.history)
	}
}

func TestImportPrimaryRowIsolation(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(primaryHeader)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&sb, "Chamado %d,JRA-%d,Em andamento,%02d/Jan/24 10:00 AM,%02d/Jan/24 11:00 AM,Ana,corpo\n", i, i, i, i)
	}
	sb.WriteString("Chamado ruim,JRA-99,Em andamento,32/Xyz/24 99:99 ZZ,01/Jan/24 11:00 AM,Ana,corpo\n")
	for i := 6; i <= 10; i++ {
		fmt.Fprintf(&sb, "Chamado %d,JRA-%d,Em andamento,%02d/Jan/24 10:00 AM,%02d/Jan/24 11:00 AM,Ana,corpo\n", i, i, i, i)
	}

	f := newImportFixture()
	batch, err := f.service.ImportPrimary(context.Background(), strings.NewReader(sb.String()), "com-linha-ruim")
	if err != nil {
		t.Fatalf("ImportPrimary returned error: %v", err)
	}

	if got := f.tickets.count(); got != 10 {
		t.Errorf("persisted tickets = %d, want 10", got)
	}
	if got := f.batches.status(batch.ID); got != domain.BatchStatusUnderReview {
		t.Errorf("batch status = %q, want %q (bad row must not fail the batch)", got, domain.BatchStatusUnderReview)
	}

	call := f.enrichment.waitDispatch(t)
	if len(call.ids) != 10 {
		t.Errorf("dispatched ids = %d, want 10", len(call.ids))
	}
}

func TestImportPrimaryIdempotentUpsert(t *testing.T) {
	csvData := primaryHeader +
		"Primeira versão,JRA-1,Em andamento,01/Jan/24 10:00 AM,02/Jan/24 11:00 AM,Ana,corpo\n"
	updated := primaryHeader +
		"Versão corrigida,JRA-1,Resolvido,01/Jan/24 10:00 AM,05/Jan/24 09:00 AM,Bruno,corpo novo\n"

	f := newImportFixture()
	firstBatch, err := f.service.ImportPrimary(context.Background(), strings.NewReader(csvData), "primeiro")
	if err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	f.enrichment.waitDispatch(t)

	secondBatch, err := f.service.ImportPrimary(context.Background(), strings.NewReader(updated), "segundo")
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	f.enrichment.waitDispatch(t)

	if got := f.tickets.count(); got != 1 {
		t.Fatalf("tickets after re-import = %d, want 1", got)
	}
	ticket, _ := f.tickets.GetByExternalID(context.Background(), "JRA-1")
	if ticket.Title != "Versão corrigida" || ticket.Status != domain.TicketStatusConcluded {
		t.Errorf("re-import did not converge to second file's values: %+v", ticket)
	}
	if ticket.BatchID != secondBatch.ID || ticket.BatchID == firstBatch.ID {
		t.Errorf("batch reference = %q, want re-targeted to %q", ticket.BatchID, secondBatch.ID)
	}

	// repeated imports append, never dedup, on the document side
	if len(f.interactions.primary) != 2 {
		t.Errorf("interactions after re-import = %d, want 2", len(f.interactions.primary))
	}
}

func TestImportAlternativeFlow(t *testing.T) {
	csvData := "ID;Título;Status;Data de Abertura;Última Atualização;Descrição;Solução;Responsável\n" +
		"ALT-1;Sistema lento;Em andamento;05/02/2024 14:30;06/02/2024 09:00;Sistema demora para abrir;Reinício do serviço;Carlos Lima\n"

	f := newImportFixture()
	batch, err := f.service.ImportAlternative(context.Background(), strings.NewReader(csvData), "planilha-alt")
	if err != nil {
		t.Fatalf("ImportAlternative returned error: %v", err)
	}

	if got := f.batches.status(batch.ID); got != domain.BatchStatusDone {
		t.Errorf("batch status = %q, want %q", got, domain.BatchStatusDone)
	}
	if len(f.batches.history) != 2 ||
		f.batches.history[0] != domain.BatchStatusUnderReview ||
		f.batches.history[1] != domain.BatchStatusDone {
		t.Errorf("batch transitions = %v, want [UNDER_REVIEW DONE]", f.batches.history)
	}

	if len(f.enrichment.merged) != 1 || len(f.enrichment.merged[0].items) != 1 {
		t.Fatalf("DispatchAndMerge calls = %v, want one call with one item", f.enrichment.merged)
	}
	if got := f.enrichment.merged[0].batchID; got != batch.ID {
		t.Errorf("DispatchAndMerge batch = %q, want %q", got, batch.ID)
	}
	item := f.enrichment.merged[0].items[0]
	if item.TicketID != "ALT-1" || item.Description != "Sistema demora para abrir" {
		t.Errorf("classification item = %+v", item)
	}

	if len(f.interactions.alternative) != 1 {
		t.Fatalf("alternative interactions = %d, want 1", len(f.interactions.alternative))
	}
	interaction := f.interactions.alternative[0]
	if interaction.Resolution != "Reinício do serviço" || interaction.TicketID != "ALT-1" {
		t.Errorf("alternative interaction = %+v", interaction)
	}

	select {
	case call := <-f.enrichment.dispatched:
		t.Errorf("unexpected fire-and-forget dispatch for alternative dialect: %v", call)
	default:
	}
}
