package domain

import "time"

// TicketStatus is the canonical three-bucket status vocabulary. Every raw
// status token from an export file folds into one of these values.
type TicketStatus string

const (
	TicketStatusConcluded TicketStatus = "Concluído"
	TicketStatusCancelled TicketStatus = "Cancelado"
	TicketStatusOpen      TicketStatus = "Em aberto"
)

// ImportDialect tags which CSV layout produced a ticket.
type ImportDialect string

const (
	DialectPrimary     ImportDialect = "PRIMARY"
	DialectAlternative ImportDialect = "ALTERNATIVE"
)

// Enrichment carries the annotations returned by the classification service.
type Enrichment struct {
	Sentiment string
	Type      string
	Summary   *string
	Keywords  []string
}

// Ticket is the canonical record for one imported item. ExternalID is the
// identifier assigned by the upstream ticketing system and is the idempotency
// key for upserts; ID is the internal primary key and never changes across
// re-imports.
type Ticket struct {
	ID         string
	ExternalID string
	Title      string
	Status     TicketStatus
	OpenedAt   time.Time
	UpdatedAt  time.Time
	Assignee   string
	Dialect    ImportDialect
	BatchID    string
	Sentiment  *string
	Type       *string
	Summary    *string
	Keywords   []string
}
