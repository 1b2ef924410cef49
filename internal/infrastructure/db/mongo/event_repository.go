package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/ports"
)

const collectionEvents = "order_events"

// EventRepository implements the transition audit trail on MongoDB.
type EventRepository struct {
	db *mongo.Database
}

func NewEventRepository(db *mongo.Database) ports.EventRepository {
	return &EventRepository{db: db}
}

// Insert persists one transition record to the order_events audit collection.
func (r *EventRepository) Insert(ctx context.Context, event *domain.OrderEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"number":       event.Order.Number,
		"action":       event.Action,
		"status":       string(event.Order.Status),
		"actor_id":     event.ActorID,
		"occurred_at":  event.OccurredAt.UTC(),
		"processed_at": time.Now().UTC(),
	}
	if event.Order.WorkerID != "" {
		doc["worker_id"] = event.Order.WorkerID
	}

	_, err := r.db.Collection(collectionEvents).InsertOne(ctx, doc)
	return err
}
