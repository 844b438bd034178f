package secrets

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ironlake-data/catalog/internal/domain"
	ironmongo "github.com/ironlake-data/catalog/internal/platform/mongo"
)

// MongoStore is the primary Store implementation: one collection, documents
// keyed by the domain id rather than mongo's own ObjectID.
type MongoStore struct {
	conn *ironmongo.Connection
	collection string
}

// NewMongoStore returns a MongoStore backed by conn. collection defaults to
// "secrets" when empty.
func NewMongoStore(conn *ironmongo.Connection, collection string) *MongoStore {
	if collection == "" {
		collection = "secrets"
	}

	return &MongoStore{conn: conn, collection: collection}
}

type secretDocument struct {
	ID string `bson:"_id"`
	Kind string `bson:"kind"`
	Payload map[string]string `bson:"payload"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d secretDocument) toEntity() *domain.Secret {
	return &domain.Secret{
		ID: d.ID,
		Kind: domain.SecretKind(d.Kind),
		Payload: d.Payload,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (s *MongoStore) coll(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return nil, domain.BackendUnavailableError{Backend: "mongo", Message: "connect to secret store", Err: err}
	}

	return db.Collection(s.collection), nil
}

// Get fetches a secret by opaque id.
func (s *MongoStore) Get(ctx context.Context, id string) (*domain.Secret, error) {
	coll, err := s.coll(ctx)
	if err != nil {
		return nil, err
	}

	var doc secretDocument

	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFoundError{EntityType: "Secret", Message: "secret not found"}
		}

		return nil, domain.BackendUnavailableError{Backend: "mongo", Message: "get secret", Err: err}
	}

	return doc.toEntity(), nil
}

// Put upserts secret, stamping CreatedAt on first write and UpdatedAt on
// every write.
func (s *MongoStore) Put(ctx context.Context, secret *domain.Secret) error {
	coll, err := s.coll(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	secret.UpdatedAt = now

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": secret.ID}
	update := bson.M{
		"$set": bson.M{
			"kind": string(secret.Kind),
			"payload": secret.Payload,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}

	if _, err := coll.UpdateOne(ctx, filter, update, opts); err != nil {
		return domain.BackendUnavailableError{Backend: "mongo", Message: "put secret", Err: err}
	}

	return nil
}

// Delete removes a secret. Callers must ensure no warehouse still
// references it.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	coll, err := s.coll(ctx)
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return domain.BackendUnavailableError{Backend: "mongo", Message: "delete secret", Err: err}
	}

	if res.DeletedCount == 0 {
		return domain.NotFoundError{EntityType: "Secret", Message: "secret not found"}
	}

	return nil
}
