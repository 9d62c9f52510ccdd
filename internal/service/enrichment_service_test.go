package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/rodrigofm92/chamado-import-service/internal/config"
	"github.com/rodrigofm92/chamado-import-service/internal/domain"
	"github.com/rodrigofm92/chamado-import-service/internal/events"
	"github.com/rodrigofm92/chamado-import-service/internal/service"
)

type classifierCall struct {
	path string
	body map[string]any
}

// recordingClassifier stands in for the remote classification service.
type recordingClassifier struct {
	mu       sync.Mutex
	calls    []classifierCall
	failNext int
}

func (r *recordingClassifier) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("classifier received malformed JSON: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		r.mu.Lock()
		r.calls = append(r.calls, classifierCall{path: req.URL.Path, body: body})
		fail := r.failNext > 0
		if fail {
			r.failNext--
		}
		r.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		if req.URL.Path == "/prever" {
			resp := map[string]any{"chamados": []map[string]string{}}
			chamados, _ := body["chamados"].([]any)
			results := make([]map[string]string, 0, len(chamados))
			for _, raw := range chamados {
				item, _ := raw.(map[string]any)
				id, _ := item["chamadoId"].(string)
				results = append(results, map[string]string{
					"chamadoId":   id,
					"emocao":      "frustrado",
					"tipoChamado": "reclamação",
				})
			}
			resp["chamados"] = results
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (r *recordingClassifier) recorded() []classifierCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]classifierCall{}, r.calls...)
}

func idsOf(call classifierCall) []string {
	raw, _ := call.body["ids"].([]any)
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		s, _ := v.(string)
		ids = append(ids, s)
	}
	return ids
}

func newEnrichmentFixture(t *testing.T) (*service.EnrichmentService, *recordingClassifier, *fakeTicketRepo, *fakeBatchRepo) {
	t.Helper()
	classifier := &recordingClassifier{}
	server := httptest.NewServer(classifier.handler(t))
	t.Cleanup(server.Close)

	tickets := newFakeTicketRepo()
	batches := newFakeBatchRepo()
	enrichment := service.NewEnrichmentService(config.ClassifierConfig{
		BaseURL:               server.URL,
		RequestTimeoutSeconds: 5,
		PredictTimeoutSeconds: 5,
	}, service.EnrichmentDependencies{
		TicketRepo: tickets,
		BatchRepo:  batches,
		Logger:     zap.NewNop(),
	})
	return enrichment, classifier, tickets, batches
}

func TestDispatchChunksInOrder(t *testing.T) {
	enrichment, classifier, _, _ := newEnrichmentFixture(t)

	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("JRA-%d", i+1)
	}
	enrichment.Dispatch(context.Background(), ids, domain.DialectPrimary)

	calls := classifier.recorded()
	if len(calls) != 3 {
		t.Fatalf("classifier calls = %d, want 3", len(calls))
	}
	wantSizes := []int{100, 100, 50}
	for i, call := range calls {
		if call.path != "/process" {
			t.Errorf("call %d path = %q, want /process", i, call.path)
		}
		if got := len(idsOf(call)); got != wantSizes[i] {
			t.Errorf("call %d size = %d, want %d", i, got, wantSizes[i])
		}
	}
	if first := idsOf(calls[0]); first[0] != "JRA-1" || first[99] != "JRA-100" {
		t.Errorf("first chunk boundaries = %q..%q", first[0], first[99])
	}
	if last := idsOf(calls[2]); last[0] != "JRA-201" || last[49] != "JRA-250" {
		t.Errorf("last chunk boundaries = %q..%q", last[0], last[49])
	}
}

func TestDispatchUsesAlternativeEndpoint(t *testing.T) {
	enrichment, classifier, _, _ := newEnrichmentFixture(t)

	enrichment.Dispatch(context.Background(), []string{"ALT-1"}, domain.DialectAlternative)

	calls := classifier.recorded()
	if len(calls) != 1 || calls[0].path != "/process-alternative" {
		t.Fatalf("calls = %+v, want one POST to /process-alternative", calls)
	}
}

func TestDispatchContinuesAfterFailedChunk(t *testing.T) {
	enrichment, classifier, _, _ := newEnrichmentFixture(t)
	classifier.failNext = 1

	ids := make([]string, 150)
	for i := range ids {
		ids[i] = fmt.Sprintf("JRA-%d", i+1)
	}
	enrichment.Dispatch(context.Background(), ids, domain.DialectPrimary)

	calls := classifier.recorded()
	if len(calls) != 2 {
		t.Fatalf("classifier calls = %d, want 2 (second chunk still sent after 500)", len(calls))
	}
}

func TestDispatchAndMergeAppliesAnnotations(t *testing.T) {
	enrichment, classifier, tickets, _ := newEnrichmentFixture(t)

	ticket := &domain.Ticket{ExternalID: "ALT-1", Title: "Sistema lento", Status: domain.TicketStatusOpen}
	if err := tickets.Upsert(context.Background(), ticket); err != nil {
		t.Fatal(err)
	}

	enrichment.DispatchAndMerge(context.Background(), "batch-alt", []service.ClassificationItem{
		{TicketID: "ALT-1", Description: "Sistema demora para abrir"},
	})

	calls := classifier.recorded()
	if len(calls) != 1 || calls[0].path != "/prever" {
		t.Fatalf("calls = %+v, want one POST to /prever", calls)
	}

	merged, ok := tickets.merges["ALT-1"]
	if !ok {
		t.Fatal("annotation was not merged onto ALT-1")
	}
	if merged.Sentiment != "frustrado" || merged.Type != "reclamação" {
		t.Errorf("merged enrichment = %+v", merged)
	}
}

func TestDispatchAndMergePublishesMergedEvent(t *testing.T) {
	classifier := &recordingClassifier{}
	server := httptest.NewServer(classifier.handler(t))
	t.Cleanup(server.Close)

	tickets := newFakeTicketRepo()
	dispatcher := events.NewInMemoryDispatcher()
	received := make(chan events.Event, 1)
	dispatcher.Subscribe(events.EventEnrichmentMerged, func(_ context.Context, event events.Event) error {
		received <- event
		return nil
	})

	enrichment := service.NewEnrichmentService(config.ClassifierConfig{
		BaseURL:               server.URL,
		RequestTimeoutSeconds: 5,
		PredictTimeoutSeconds: 5,
	}, service.EnrichmentDependencies{
		TicketRepo: tickets,
		BatchRepo:  newFakeBatchRepo(),
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})

	if err := tickets.Upsert(context.Background(), &domain.Ticket{ExternalID: "ALT-1"}); err != nil {
		t.Fatal(err)
	}
	enrichment.DispatchAndMerge(context.Background(), "batch-9", []service.ClassificationItem{
		{TicketID: "ALT-1", Description: "descrição"},
	})

	select {
	case event := <-received:
		if event.BatchID != "batch-9" {
			t.Errorf("event batch = %q, want batch-9", event.BatchID)
		}
		payload, ok := event.Payload.(events.EnrichmentMergedPayload)
		if !ok || payload.Merged != 1 {
			t.Errorf("event payload = %+v, want one merged annotation", event.Payload)
		}
	default:
		t.Fatal("no enrichment-merged event published after awaited merge")
	}
}

func TestCompleteBatchMergesAndFinishes(t *testing.T) {
	enrichment, _, tickets, batches := newEnrichmentFixture(t)

	batch := &domain.ImportBatch{Name: "lote", Status: domain.BatchStatusUnderReview}
	if err := batches.Create(context.Background(), batch); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"JRA-1", "JRA-2"} {
		if err := tickets.Upsert(context.Background(), &domain.Ticket{ExternalID: id, BatchID: batch.ID}); err != nil {
			t.Fatal(err)
		}
	}
	tickets.mergeErrs["JRA-2"] = errors.New("merge exploded")

	summary := "acesso negado após troca de senha"
	err := enrichment.CompleteBatch(context.Background(), batch.ID, []service.EnrichmentResult{
		{TicketID: "JRA-1", Sentiment: "irritado", Type: "incidente", Summary: &summary, Keywords: []string{"senha", "acesso"}},
		{TicketID: "JRA-2", Sentiment: "neutro", Type: "dúvida"},
	})
	if err != nil {
		t.Fatalf("CompleteBatch returned error: %v", err)
	}

	if got := batches.status(batch.ID); got != domain.BatchStatusDone {
		t.Errorf("batch status = %q, want %q (one failed merge must not block completion)", got, domain.BatchStatusDone)
	}

	merged := tickets.merges["JRA-1"]
	if merged.Sentiment != "irritado" || merged.Summary == nil || *merged.Summary != summary {
		t.Errorf("JRA-1 enrichment = %+v", merged)
	}
	if len(merged.Keywords) != 2 {
		t.Errorf("JRA-1 keywords = %v", merged.Keywords)
	}
	if _, ok := tickets.merges["JRA-2"]; ok {
		t.Error("JRA-2 merge succeeded despite injected repository error")
	}
}

func TestCompleteBatchUnknownBatch(t *testing.T) {
	enrichment, _, _, _ := newEnrichmentFixture(t)

	if err := enrichment.CompleteBatch(context.Background(), "missing", nil); err == nil {
		t.Fatal("CompleteBatch accepted an unknown batch id")
	}
}
