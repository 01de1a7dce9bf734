package history

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCloseTimeout = 5 * time.Second

type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type mongoTurn struct {
	SessionID string    `bson:"session_id"`
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	Timestamp time.Time `bson:"timestamp"`
}

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		database = "research_agent"
	}
	if collection == "" {
		collection = "chat_history"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoStore{client: client, collection: coll}, nil
}

func (ms *MongoStore) Append(ctx context.Context, sessionID, role, text string) error {
	if err := checkRole(role); err != nil {
		return err
	}
	_, err := ms.collection.InsertOne(ctx, mongoTurn{
		SessionID: sessionID,
		Role:      role,
		Content:   text,
		Timestamp: time.Now().UTC(),
	})
	return err
}

func (ms *MongoStore) Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(normalizeLimit(limit)))
	cur, err := ms.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []mongoTurn
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return reverse(fromMongo(docs)), nil
}

func (ms *MongoStore) Close() error {
	if ms == nil || ms.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

func fromMongo(docs []mongoTurn) []Turn {
	turns := make([]Turn, 0, len(docs))
	for _, d := range docs {
		turns = append(turns, Turn{Role: d.Role, Text: d.Content, Timestamp: d.Timestamp.UTC()})
	}
	return turns
}
