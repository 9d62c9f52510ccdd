package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rodrigofm92/chamado-import-service/internal/domain"
	"github.com/rodrigofm92/chamado-import-service/internal/events"
	"github.com/rodrigofm92/chamado-import-service/internal/persistence"
	"github.com/rodrigofm92/chamado-import-service/internal/repository"
)

const (
	ticketCacheTTL    = time.Minute
	ticketCacheGenKey = "tickets:gen"
)

// TicketService serves read access to imported tickets and interactions,
// with a read-through Redis cache over the listing queries. The cache is
// invalidated by generation: imports and enrichment merges bump a counter
// that is part of every cache key, so stale entries simply expire.
type TicketService struct {
	tickets      repository.TicketRepository
	interactions repository.InteractionRepository
	cache        *persistence.Redis
	logger       *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, interactions repository.InteractionRepository, cache *persistence.Redis, logger *zap.Logger) *TicketService {
	return &TicketService{
		tickets:      tickets,
		interactions: interactions,
		cache:        cache,
		logger:       logger,
	}
}

// RegisterInvalidation bumps the cache generation whenever the pipeline
// changes ticket data.
func (s *TicketService) RegisterInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	bump := func(ctx context.Context, _ events.Event) error {
		s.invalidate(ctx)
		return nil
	}
	dispatcher.Subscribe(events.EventImportRowsPersisted, bump)
	dispatcher.Subscribe(events.EventEnrichmentMerged, bump)
}

// ListTickets returns a page of tickets ordered by last update.
func (s *TicketService) ListTickets(ctx context.Context, page, limit int) ([]domain.Ticket, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	key := fmt.Sprintf("page:%d:%d", page, limit)
	return s.cached(ctx, key, func() ([]domain.Ticket, error) {
		return s.tickets.ListAll(ctx, limit, (page-1)*limit)
	})
}

// ListByStatus returns tickets in one canonical status.
func (s *TicketService) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	return s.cached(ctx, "status:"+string(status), func() ([]domain.Ticket, error) {
		return s.tickets.ListByStatus(ctx, status)
	})
}

// ListBySentiment returns tickets with the given classified sentiment.
func (s *TicketService) ListBySentiment(ctx context.Context, sentiment string) ([]domain.Ticket, error) {
	return s.cached(ctx, "sentiment:"+sentiment, func() ([]domain.Ticket, error) {
		return s.tickets.ListBySentiment(ctx, sentiment)
	})
}

// ListByDialect returns tickets imported from one dialect.
func (s *TicketService) ListByDialect(ctx context.Context, dialect domain.ImportDialect) ([]domain.Ticket, error) {
	return s.cached(ctx, "dialect:"+string(dialect), func() ([]domain.Ticket, error) {
		return s.tickets.ListByDialect(ctx, dialect)
	})
}

// ListByBatch returns the tickets owned by one import batch.
func (s *TicketService) ListByBatch(ctx context.Context, batchID string) ([]domain.Ticket, error) {
	return s.cached(ctx, "batch:"+batchID, func() ([]domain.Ticket, error) {
		return s.tickets.ListByBatch(ctx, batchID)
	})
}

// ListInteractions returns the primary-dialect interactions for a ticket.
func (s *TicketService) ListInteractions(ctx context.Context, ticketID string) ([]domain.Interaction, error) {
	return s.interactions.ListByTicket(ctx, ticketID)
}

// ListAlternativeInteractions returns the alternative-dialect interactions
// for a ticket.
func (s *TicketService) ListAlternativeInteractions(ctx context.Context, ticketID string) ([]domain.AlternativeInteraction, error) {
	return s.interactions.ListAlternativeByTicket(ctx, ticketID)
}

// cached serves the listing from Redis when possible and falls back to the
// loader. Cache failures are logged at debug level and never surface.
func (s *TicketService) cached(ctx context.Context, key string, load func() ([]domain.Ticket, error)) ([]domain.Ticket, error) {
	if s.cache == nil || s.cache.Client == nil {
		return load()
	}

	fullKey := fmt.Sprintf("tickets:v%d:%s", s.generation(ctx), key)
	if raw, err := s.cache.Client.Get(ctx, fullKey).Bytes(); err == nil {
		var cachedResult []domain.Ticket
		if err := json.Unmarshal(raw, &cachedResult); err == nil {
			return cachedResult, nil
		}
	}

	result, err := load()
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := s.cache.Client.Set(ctx, fullKey, raw, ticketCacheTTL).Err(); err != nil {
			s.logger.Debug("ticket cache write failed", zap.String("key", fullKey), zap.Error(err))
		}
	}
	return result, nil
}

func (s *TicketService) generation(ctx context.Context) int64 {
	gen, err := s.cache.Client.Get(ctx, ticketCacheGenKey).Int64()
	if err != nil {
		return 0
	}
	return gen
}

func (s *TicketService) invalidate(ctx context.Context) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	if err := s.cache.Client.Incr(ctx, ticketCacheGenKey).Err(); err != nil {
		s.logger.Debug("ticket cache invalidation failed", zap.Error(err))
	}
}
