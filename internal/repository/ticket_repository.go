package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rodrigofm92/chamado-import-service/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Upsert(ctx context.Context, ticket *domain.Ticket) error
	MergeEnrichment(ctx context.Context, externalID string, enrichment domain.Enrichment) (int64, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Ticket, error)
	ListByBatch(ctx context.Context, batchID string) ([]domain.Ticket, error)
	ListAll(ctx context.Context, limit, offset int) ([]domain.Ticket, error)
	ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error)
	ListBySentiment(ctx context.Context, sentiment string) ([]domain.Ticket, error)
	ListByDialect(ctx context.Context, dialect domain.ImportDialect) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// Upsert matches by external identifier: on hit it updates the mutable
// fields and re-targets the batch reference, on miss it inserts a new row
// with the dialect tag. The internal id and any enrichment annotations
// survive re-imports.
func (r *ticketRepository) Upsert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_id, title, status, opened_at, updated_at, assignee, dialect, batch_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (external_id) DO UPDATE SET
            title=EXCLUDED.title, status=EXCLUDED.status, opened_at=EXCLUDED.opened_at,
            updated_at=EXCLUDED.updated_at, assignee=EXCLUDED.assignee, batch_id=EXCLUDED.batch_id
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalID,
		ticket.Title,
		ticket.Status,
		ticket.OpenedAt,
		ticket.UpdatedAt,
		ticket.Assignee,
		ticket.Dialect,
		ticket.BatchID,
	).Scan(&ticket.ID)
}

// MergeEnrichment applies classifier annotations to every ticket matching the
// external identifier and reports how many rows were touched. Summary and
// keywords are only overwritten when the classifier provided them.
func (r *ticketRepository) MergeEnrichment(ctx context.Context, externalID string, enrichment domain.Enrichment) (int64, error) {
	const query = `
        UPDATE tickets SET sentiment=$2, type=$3,
            summary=COALESCE($4, summary), keywords=COALESCE($5, keywords)
        WHERE external_id=$1`
	var keywords any
	if len(enrichment.Keywords) > 0 {
		keywords = enrichment.Keywords
	}
	cmd, err := r.pool.Exec(ctx, query,
		externalID,
		enrichment.Sentiment,
		enrichment.Type,
		enrichment.Summary,
		keywords,
	)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Ticket, error) {
	const query = selectTickets + ` WHERE external_id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, externalID), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByBatch(ctx context.Context, batchID string) ([]domain.Ticket, error) {
	const query = selectTickets + ` WHERE batch_id=$1 ORDER BY updated_at DESC`
	return r.list(ctx, query, batchID)
}

func (r *ticketRepository) ListAll(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = selectTickets + ` ORDER BY updated_at DESC LIMIT $1 OFFSET $2`
	return r.list(ctx, query, limit, offset)
}

func (r *ticketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	const query = selectTickets + ` WHERE status=$1 ORDER BY updated_at DESC`
	return r.list(ctx, query, status)
}

func (r *ticketRepository) ListBySentiment(ctx context.Context, sentiment string) ([]domain.Ticket, error) {
	const query = selectTickets + ` WHERE sentiment=$1 ORDER BY updated_at DESC`
	return r.list(ctx, query, sentiment)
}

func (r *ticketRepository) ListByDialect(ctx context.Context, dialect domain.ImportDialect) ([]domain.Ticket, error) {
	const query = selectTickets + ` WHERE dialect=$1 ORDER BY updated_at DESC`
	return r.list(ctx, query, dialect)
}

const selectTickets = `
        SELECT id, external_id, title, status, opened_at, updated_at, assignee,
               dialect, batch_id, sentiment, type, summary, keywords
        FROM tickets`

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ExternalID,
		&ticket.Title,
		&ticket.Status,
		&ticket.OpenedAt,
		&ticket.UpdatedAt,
		&ticket.Assignee,
		&ticket.Dialect,
		&ticket.BatchID,
		&ticket.Sentiment,
		&ticket.Type,
		&ticket.Summary,
		&ticket.Keywords,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
