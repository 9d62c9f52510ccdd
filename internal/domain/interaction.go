package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interaction is a free-text body tied to a ticket by its external
// identifier. Interactions are append-only: repeated imports of the same row
// produce repeated documents, and consistency with the relational side is
// maintained solely by the importer issuing both writes per row.
type Interaction struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TicketID string             `bson:"ticketId" json:"ticket_id"`
	Body     string             `bson:"body" json:"body"`
	Origin   string             `bson:"origin" json:"origin"`
	Actor    string             `bson:"actor,omitempty" json:"actor,omitempty"`
}

// AlternativeInteraction is the alternative-dialect shape, which splits the
// free text into the reported description and the recorded resolution.
type AlternativeInteraction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TicketID    string             `bson:"ticketId" json:"ticket_id"`
	Description string             `bson:"description" json:"description"`
	Resolution  string             `bson:"resolution" json:"resolution"`
	Origin      string             `bson:"origin" json:"origin"`
	Actor       string             `bson:"actor,omitempty" json:"actor,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"created_at"`
}
