package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"goodads/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateLead is returned by Create when the email already joined as this kind.
var ErrDuplicateLead = errors.New("duplicate lead")

type LeadRepository interface {
	Create(ctx context.Context, lead domain.Lead) error
	List(ctx context.Context, kind domain.LeadKind, page int64, pageSize int64) ([]domain.Lead, int64, error)
}

type mongoLeadRepo struct {
	collection *mongo.Collection
}

// NewMongoLeadRepo ensures the (kind, email) unique index so concurrent
// sign-ups cannot store the same lead twice.
func NewMongoLeadRepo(ctx context.Context, db *mongo.Database) (LeadRepository, error) {
	collection := db.Collection("waitlist_leads")
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("kind_email_unique"),
	})
	if err != nil {
		return nil, fmt.Errorf("create lead index: %w", err)
	}
	return &mongoLeadRepo{collection: collection}, nil
}

func (r *mongoLeadRepo) Create(ctx context.Context, lead domain.Lead) error {
	_, err := r.collection.InsertOne(ctx, lead)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateLead
	}
	return err
}

// List returns newest first; an empty kind lists every lead.
func (r *mongoLeadRepo) List(ctx context.Context, kind domain.LeadKind, page int64, pageSize int64) ([]domain.Lead, int64, error) {
	filter := bson.M{}
	if kind != "" {
		filter["kind"] = kind
	}

	skip := (page - 1) * pageSize
	findOptions := options.Find()
	findOptions.SetSkip(skip)
	findOptions.SetLimit(pageSize)
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var results []domain.Lead
	if err = cursor.All(ctx, &results); err != nil {
		return nil, 0, err
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

type memoryLeadRepo struct {
	mu    sync.RWMutex
	leads []domain.Lead
}

// NewMemoryLeadRepo is used when no MongoDB URI is configured.
func NewMemoryLeadRepo() LeadRepository {
	return &memoryLeadRepo{}
}

func (r *memoryLeadRepo) Create(_ context.Context, lead domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.leads {
		if l.Kind == lead.Kind && l.Email == lead.Email {
			return ErrDuplicateLead
		}
	}
	r.leads = append(r.leads, lead)
	return nil
}

func (r *memoryLeadRepo) List(_ context.Context, kind domain.LeadKind, page int64, pageSize int64) ([]domain.Lead, int64, error) {
	r.mu.RLock()
	var matched []domain.Lead
	for _, l := range r.leads {
		if kind == "" || l.Kind == kind {
			matched = append(matched, l)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start < 0 || start >= total {
		return []domain.Lead{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}
