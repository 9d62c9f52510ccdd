package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rodrigofm92/chamado-import-service/internal/domain"
)

// InteractionRepository appends free-text bodies to the document store. Pure
// append: no dedup, no upsert. The store does not enforce any relation to
// ticket rows; correlation is by external identifier only.
type InteractionRepository interface {
	Append(ctx context.Context, interaction *domain.Interaction) error
	AppendAlternative(ctx context.Context, interaction *domain.AlternativeInteraction) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Interaction, error)
	ListAlternativeByTicket(ctx context.Context, ticketID string) ([]domain.AlternativeInteraction, error)
}

type interactionRepository struct {
	primary     *mongo.Collection
	alternative *mongo.Collection
}

// NewInteractionRepository builds repository over the two collections.
func NewInteractionRepository(db *mongo.Database) InteractionRepository {
	return &interactionRepository{
		primary:     db.Collection("interactions"),
		alternative: db.Collection("interactions_alternative"),
	}
}

func (r *interactionRepository) Append(ctx context.Context, interaction *domain.Interaction) error {
	res, err := r.primary.InsertOne(ctx, interaction)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		interaction.ID = id
	}
	return nil
}

func (r *interactionRepository) AppendAlternative(ctx context.Context, interaction *domain.AlternativeInteraction) error {
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}
	res, err := r.alternative.InsertOne(ctx, interaction)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		interaction.ID = id
	}
	return nil
}

func (r *interactionRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Interaction, error) {
	cursor, err := r.primary.Find(ctx, bson.M{"ticketId": ticketID})
	if err != nil {
		return nil, err
	}
	var result []domain.Interaction
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *interactionRepository) ListAlternativeByTicket(ctx context.Context, ticketID string) ([]domain.AlternativeInteraction, error) {
	cursor, err := r.alternative.Find(ctx, bson.M{"ticketId": ticketID})
	if err != nil {
		return nil, err
	}
	var result []domain.AlternativeInteraction
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}
