package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/PratikDhanave/website-analytics-api/internal/models"
)

// MongoStore keeps events and applications as documents. Documents get a
// driver-generated ObjectID _id, which is what FindEvents sorts on to return
// insertion order.
type MongoStore struct {
	client *mongo.Client
	events *mongo.Collection
	apps   *mongo.Collection
}

// NewMongoStore connects to uri and fails fast if the server is unreachable.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	return &MongoStore{
		client: client,
		events: db.Collection("events"),
		apps:   db.Collection("applications"),
	}, nil
}

// EnsureSchema creates the indexes the queries rely on.
func (m *MongoStore) EnsureSchema(ctx context.Context) error {
	_, err := m.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "appId", Value: 1}, {Key: "event", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "appId", Value: 1}, {Key: "userId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create event indexes: %w", err)
	}

	_, err = m.apps.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "apiKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "appId", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create application indexes: %w", err)
	}
	return nil
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoStore) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.client.Disconnect(ctx)
}

func (m *MongoStore) InsertEvent(ctx context.Context, e models.Event) error {
	e.Timestamp = e.Timestamp.UTC()
	if _, err := m.events.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (m *MongoStore) FindEvents(ctx context.Context, f EventFilter) ([]models.Event, error) {
	filter := bson.M{"appId": f.AppID}
	if f.EventType != "" {
		filter["event"] = f.EventType
	}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.From != nil || f.To != nil {
		rng := bson.M{}
		if f.From != nil {
			rng["$gte"] = f.From.UTC()
		}
		if f.To != nil {
			rng["$lte"] = f.To.UTC()
		}
		filter["timestamp"] = rng
	}

	cursor, err := m.events.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Event
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	for i := range out {
		out[i].Timestamp = out[i].Timestamp.UTC()
	}
	return out, nil
}

func (m *MongoStore) FindByKey(ctx context.Context, apiKey string) (models.Application, error) {
	return m.findApplication(ctx, bson.M{"apiKey": apiKey})
}

func (m *MongoStore) FindByAppID(ctx context.Context, appID string) (models.Application, error) {
	return m.findApplication(ctx, bson.M{"appId": appID})
}

func (m *MongoStore) findApplication(ctx context.Context, filter bson.M) (models.Application, error) {
	var app models.Application
	err := m.apps.FindOne(ctx, filter).Decode(&app)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Application{}, ErrNotFound
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to query application: %w", err)
	}
	app.ExpiresAt = app.ExpiresAt.UTC()
	return app, nil
}

func (m *MongoStore) UpsertApplication(ctx context.Context, app models.Application) error {
	app.ExpiresAt = app.ExpiresAt.UTC()
	_, err := m.apps.ReplaceOne(ctx, bson.M{"appId": app.AppID}, app, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to upsert application: %w", err)
	}
	return nil
}
