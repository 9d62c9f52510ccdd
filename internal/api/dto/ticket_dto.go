package dto

import (
	"time"

	"github.com/rodrigofm92/chamado-import-service/internal/domain"
)

// TicketResponse describes one imported ticket.
type TicketResponse struct {
	ID         string               `json:"id"`
	ExternalID string               `json:"external_id"`
	Title      string               `json:"title"`
	Status     domain.TicketStatus  `json:"status"`
	OpenedAt   time.Time            `json:"opened_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	Assignee   string               `json:"assignee"`
	Dialect    domain.ImportDialect `json:"dialect"`
	BatchID    string               `json:"batch_id"`
	Sentiment  *string              `json:"sentiment,omitempty"`
	Type       *string              `json:"type,omitempty"`
	Summary    *string              `json:"summary,omitempty"`
	Keywords   []string             `json:"keywords,omitempty"`
}

// InteractionResponse describes one primary-dialect interaction.
type InteractionResponse struct {
	ID       string `json:"id"`
	TicketID string `json:"ticket_id"`
	Body     string `json:"body"`
	Origin   string `json:"origin"`
	Actor    string `json:"actor,omitempty"`
}

// AlternativeInteractionResponse describes one alternative-dialect
// interaction.
type AlternativeInteractionResponse struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	Description string    `json:"description"`
	Resolution  string    `json:"resolution"`
	Origin      string    `json:"origin"`
	Actor       string    `json:"actor,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromTicket maps a domain ticket to its response shape.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:         ticket.ID,
		ExternalID: ticket.ExternalID,
		Title:      ticket.Title,
		Status:     ticket.Status,
		OpenedAt:   ticket.OpenedAt,
		UpdatedAt:  ticket.UpdatedAt,
		Assignee:   ticket.Assignee,
		Dialect:    ticket.Dialect,
		BatchID:    ticket.BatchID,
		Sentiment:  ticket.Sentiment,
		Type:       ticket.Type,
		Summary:    ticket.Summary,
		Keywords:   ticket.Keywords,
	}
}

// FromTickets maps a ticket slice to response shapes.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, FromTicket(&tickets[i]))
	}
	return items
}

// FromInteraction maps a domain interaction to its response shape.
func FromInteraction(interaction *domain.Interaction) InteractionResponse {
	return InteractionResponse{
		ID:       interaction.ID.Hex(),
		TicketID: interaction.TicketID,
		Body:     interaction.Body,
		Origin:   interaction.Origin,
		Actor:    interaction.Actor,
	}
}

// FromAlternativeInteraction maps a domain alternative interaction to its
// response shape.
func FromAlternativeInteraction(interaction *domain.AlternativeInteraction) AlternativeInteractionResponse {
	return AlternativeInteractionResponse{
		ID:          interaction.ID.Hex(),
		TicketID:    interaction.TicketID,
		Description: interaction.Description,
		Resolution:  interaction.Resolution,
		Origin:      interaction.Origin,
		Actor:       interaction.Actor,
		CreatedAt:   interaction.CreatedAt,
	}
}
