package snapshot

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/modecache"
)

// MongoCollection is the collection holding snapshot documents.
const MongoCollection = "mode_layouts"

// MongoStore keeps one document per project, keyed by project id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	ttl    time.Duration
}

type mongoDoc struct {
	ID        string             `bson:"_id"`
	Snapshot  modecache.Snapshot `bson:"snapshot"`
	SavedAt   time.Time          `bson:"saved_at"`
	ExpiresAt *time.Time         `bson:"expires_at,omitempty"`
}

// NewMongoStore connects to uri and ensures a TTL index on expires_at.
func NewMongoStore(ctx context.Context, uri, database string, ttl time.Duration) (*MongoStore, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if database == "" {
		database = "kdag"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	coll := client.Database(database).Collection(MongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create ttl index: %w", err)
	}
	return &MongoStore{client: client, coll: coll, ttl: ttl}, nil
}

func (s *MongoStore) Load(ctx context.Context, projectID string) (modecache.Snapshot, bool, error) {
	if err := errors.ValidateID("project", projectID); err != nil {
		return nil, false, err
	}
	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": projectID}).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find snapshot %s: %w", projectID, err)
	}
	// The TTL monitor runs about once a minute; honor expiry in between.
	if doc.ExpiresAt != nil && time.Now().After(*doc.ExpiresAt) {
		return nil, false, nil
	}
	return doc.Snapshot, true, nil
}

func (s *MongoStore) Save(ctx context.Context, projectID string, snap modecache.Snapshot) error {
	if err := errors.ValidateID("project", projectID); err != nil {
		return err
	}
	rec := newRecord(projectID, snap, s.ttl)
	doc := mongoDoc{ID: projectID, Snapshot: snap, SavedAt: rec.SavedAt}
	if !rec.ExpiresAt.IsZero() {
		doc.ExpiresAt = &rec.ExpiresAt
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": projectID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", projectID, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, projectID string) error {
	if err := errors.ValidateID("project", projectID); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": projectID}); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", projectID, err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
