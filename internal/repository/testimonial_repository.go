package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rewear/swap-ledger/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTestimonialLimit = 10

// TestimonialStore persists landing page testimonials
type TestimonialStore interface {
	CreateTestimonial(ctx context.Context, t *models.Testimonial) error
	ListTestimonials(ctx context.Context, limit int) ([]models.Testimonial, error)
}

// NewMongoClient connects to MongoDB and verifies the connection
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client, nil
}

// MongoTestimonialStore stores testimonials in a MongoDB collection
type MongoTestimonialStore struct {
	coll *mongo.Collection
}

// NewMongoTestimonialStore creates a store backed by the testimonials collection of dbName
func NewMongoTestimonialStore(client *mongo.Client, dbName string) *MongoTestimonialStore {
	return &MongoTestimonialStore{coll: client.Database(dbName).Collection("testimonials")}
}

func (s *MongoTestimonialStore) CreateTestimonial(ctx context.Context, t *models.Testimonial) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	if _, err := s.coll.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert testimonial: %w", err)
	}
	return nil
}

func (s *MongoTestimonialStore) ListTestimonials(ctx context.Context, limit int) ([]models.Testimonial, error) {
	if limit <= 0 {
		limit = defaultTestimonialLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find testimonials: %w", err)
	}
	defer cursor.Close(ctx)

	testimonials := []models.Testimonial{}
	if err := cursor.All(ctx, &testimonials); err != nil {
		return nil, fmt.Errorf("decode testimonials: %w", err)
	}
	return testimonials, nil
}

// MemoryTestimonialStore keeps testimonials in process memory
type MemoryTestimonialStore struct {
	mu           sync.RWMutex
	testimonials []models.Testimonial
}

func NewMemoryTestimonialStore() *MemoryTestimonialStore {
	return &MemoryTestimonialStore{}
}

func (s *MemoryTestimonialStore) CreateTestimonial(ctx context.Context, t *models.Testimonial) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.testimonials = append(s.testimonials, *t)
	return nil
}

func (s *MemoryTestimonialStore) ListTestimonials(ctx context.Context, limit int) ([]models.Testimonial, error) {
	if limit <= 0 {
		limit = defaultTestimonialLimit
	}

	s.mu.RLock()
	out := append([]models.Testimonial(nil), s.testimonials...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []models.Testimonial{}
	}
	return out, nil
}
