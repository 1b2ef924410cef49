package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/ports"
)

const collectionOrders = "orders"

// orderDoc is the Mongo persistence shape. Money fields are stored as
// decimal strings so no precision is lost in transit.
type orderDoc struct {
	Number           string      `bson:"number"`
	DispatcherID     string      `bson:"dispatcher_id"`
	DispatcherName   string      `bson:"dispatcher_name"`
	Address          string      `bson:"address"`
	ScheduledAt      time.Time   `bson:"scheduled_at"`
	Cargo            string      `bson:"cargo"`
	PricePerHour     string      `bson:"price_per_hour"`
	EstimatedHours   int         `bson:"estimated_hours"`
	Comment          string      `bson:"comment,omitempty"`
	Status           string      `bson:"status"`
	WorkerID         string      `bson:"worker_id,omitempty"`
	WorkerName       string      `bson:"worker_name,omitempty"`
	FormerWorkerID   string      `bson:"former_worker_id,omitempty"`
	FormerWorkerName string      `bson:"former_worker_name,omitempty"`
	WorkerRating     string      `bson:"worker_rating,omitempty"`
	CreatedAt        time.Time   `bson:"created_at"`
	UpdatedAt        time.Time   `bson:"updated_at"`
	StatusHistory    []histEntry `bson:"status_history"`
}

type histEntry struct {
	Status    string    `bson:"status"`
	Timestamp time.Time `bson:"timestamp"`
	Notes     string    `bson:"notes,omitempty"`
}

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(collectionOrders)}
}

// Create inserts a new order document.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, toDoc(o))
	return err
}

func (r *OrderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc orderDoc
	err := r.col.FindOne(ctx, bson.M{"number": number}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return fromDoc(&doc)
}

func (r *OrderRepository) List(ctx context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query["status"] = bson.M{"$in": statuses}
	}
	if filter.WorkerID != "" {
		query["worker_id"] = filter.WorkerID
	}
	if filter.InvolvedWorkerID != "" {
		query["$or"] = bson.A{
			bson.M{"worker_id": filter.InvolvedWorkerID},
			bson.M{"former_worker_id": filter.InvolvedWorkerID},
		}
	}
	if filter.DispatcherID != "" {
		query["dispatcher_id"] = filter.DispatcherID
	}
	if filter.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		searchOr := bson.A{
			bson.M{"address": re},
			bson.M{"cargo": re},
		}
		// Compose with an involvement $or instead of clobbering it.
		if existing, ok := query["$or"]; ok {
			delete(query, "$or")
			query["$and"] = bson.A{bson.M{"$or": existing}, bson.M{"$or": searchOr}}
		} else {
			query["$or"] = searchOr
		}
	}

	sortSpec := bson.D{{Key: "scheduled_at", Value: 1}, {Key: "created_at", Value: 1}}
	if filter.Sort == ports.SortUpdatedDesc {
		sortSpec = bson.D{{Key: "updated_at", Value: -1}}
	}

	cursor, err := r.col.Find(ctx, query, options.Find().SetSort(sortSpec))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	for cursor.Next(ctx) {
		var doc orderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		o, err := fromDoc(&doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, cursor.Err()
}

// Transition applies the status change as a single conditional update: the
// filter pins the expected current status, so the write is a compare-and-
// swap and a lost race surfaces as a conflict instead of a silent
// overwrite. Status, worker fields, and the history entry land atomically.
func (r *OrderRepository) Transition(ctx context.Context, number string, from, to domain.OrderStatus, patch ports.TransitionPatch) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"status":     string(to),
		"updated_at": patch.At.UTC(),
	}
	if patch.Worker != nil {
		set["worker_id"] = patch.Worker.ID
		set["worker_name"] = patch.Worker.Name
	}
	if patch.FormerWorker != nil {
		set["former_worker_id"] = patch.FormerWorker.ID
		set["former_worker_name"] = patch.FormerWorker.Name
	}
	update := bson.M{
		"$set": set,
		"$push": bson.M{"status_history": histEntry{
			Status:    string(to),
			Timestamp: patch.At.UTC(),
			Notes:     patch.Note,
		}},
	}
	if patch.ClearWorker {
		update["$unset"] = bson.M{"worker_id": "", "worker_name": ""}
	}

	var doc orderDoc
	err := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"number": number, "status": string(from)},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.missReason(ctx, number, "transition")
		}
		return nil, err
	}
	return fromDoc(&doc)
}

// SetRating stores the worker rating once: the filter requires a completed
// order with no rating present.
func (r *OrderRepository) SetRating(ctx context.Context, number string, rating decimal.Decimal, note string, at time.Time) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"number":        number,
		"status":        string(domain.StatusCompleted),
		"worker_rating": bson.M{"$exists": false},
	}
	update := bson.M{
		"$set": bson.M{
			"worker_rating": rating.String(),
			"updated_at":    at.UTC(),
		},
		"$push": bson.M{"status_history": histEntry{
			Status:    string(domain.StatusCompleted),
			Timestamp: at.UTC(),
			Notes:     note,
		}},
	}

	var doc orderDoc
	err := r.col.FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.ratingMissReason(ctx, number)
		}
		return nil, err
	}
	return fromDoc(&doc)
}

// missReason distinguishes "order does not exist" from "precondition lost".
func (r *OrderRepository) missReason(ctx context.Context, number, op string) error {
	var doc orderDoc
	err := r.col.FindOne(ctx, bson.M{"number": number}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%s from %s: %w", op, doc.Status, domain.ErrConflict)
}

func (r *OrderRepository) ratingMissReason(ctx context.Context, number string) error {
	var doc orderDoc
	err := r.col.FindOne(ctx, bson.M{"number": number}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if doc.WorkerRating != "" {
		return domain.ErrAlreadyRated
	}
	return fmt.Errorf("rate from %s: %w", doc.Status, domain.ErrConflict)
}

// EnsureIndexes creates necessary indexes on the orders collection.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_at", Value: 1}}},
		{Keys: bson.D{{Key: "worker_id", Value: 1}}},
		{Keys: bson.D{{Key: "dispatcher_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func toDoc(o *domain.Order) *orderDoc {
	doc := &orderDoc{
		Number:           o.Number,
		DispatcherID:     o.DispatcherID,
		DispatcherName:   o.DispatcherName,
		Address:          o.Address,
		ScheduledAt:      o.ScheduledAt.UTC(),
		Cargo:            o.Cargo,
		PricePerHour:     o.PricePerHour.String(),
		EstimatedHours:   o.EstimatedHours,
		Comment:          o.Comment,
		Status:           string(o.Status),
		WorkerID:         o.WorkerID,
		WorkerName:       o.WorkerName,
		FormerWorkerID:   o.FormerWorkerID,
		FormerWorkerName: o.FormerWorkerName,
		CreatedAt:        o.CreatedAt.UTC(),
		UpdatedAt:        o.UpdatedAt.UTC(),
	}
	if o.WorkerRating != nil {
		doc.WorkerRating = o.WorkerRating.String()
	}
	doc.StatusHistory = make([]histEntry, len(o.StatusHistory))
	for i, h := range o.StatusHistory {
		doc.StatusHistory[i] = histEntry{Status: string(h.Status), Timestamp: h.Timestamp.UTC(), Notes: h.Notes}
	}
	return doc
}

func fromDoc(doc *orderDoc) (*domain.Order, error) {
	price, err := decimal.NewFromString(doc.PricePerHour)
	if err != nil {
		return nil, fmt.Errorf("order %s: bad price %q: %w", doc.Number, doc.PricePerHour, err)
	}

	o := &domain.Order{
		Number:           doc.Number,
		DispatcherID:     doc.DispatcherID,
		DispatcherName:   doc.DispatcherName,
		Address:          doc.Address,
		ScheduledAt:      doc.ScheduledAt,
		Cargo:            doc.Cargo,
		PricePerHour:     price,
		EstimatedHours:   doc.EstimatedHours,
		Comment:          doc.Comment,
		Status:           domain.OrderStatus(doc.Status),
		WorkerID:         doc.WorkerID,
		WorkerName:       doc.WorkerName,
		FormerWorkerID:   doc.FormerWorkerID,
		FormerWorkerName: doc.FormerWorkerName,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	if doc.WorkerRating != "" {
		rating, err := decimal.NewFromString(doc.WorkerRating)
		if err != nil {
			return nil, fmt.Errorf("order %s: bad rating %q: %w", doc.Number, doc.WorkerRating, err)
		}
		o.WorkerRating = &rating
	}
	o.StatusHistory = make([]domain.StatusHistoryEntry, len(doc.StatusHistory))
	for i, h := range doc.StatusHistory {
		o.StatusHistory[i] = domain.StatusHistoryEntry{Status: domain.OrderStatus(h.Status), Timestamp: h.Timestamp, Notes: h.Notes}
	}
	return o, nil
}
