package sensor

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const readingsCollection = "sensor_data"

// MongoStore keeps reading history in MongoDB.
type MongoStore struct {
	client   *mongo.Client
	readings *mongo.Collection
}

// NewMongoStore connects, selects the database and ensures the
// (device_id, timestamp desc) index.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	readings := client.Database(database).Collection(readingsCollection)
	if _, err := readings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "device_id", Value: 1}, {Key: "timestamp", Value: -1}},
	}); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo index: %w", err)
	}

	return &MongoStore{client: client, readings: readings}, nil
}

func deviceFilter(deviceID string) bson.M {
	if deviceID == "" {
		return bson.M{}
	}
	return bson.M{"device_id": deviceID}
}

func (s *MongoStore) Save(ctx context.Context, rec Record) error {
	if _, err := s.readings.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *MongoStore) Latest(ctx context.Context, deviceID string) (Record, error) {
	var rec Record
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	err := s.readings.FindOne(ctx, deviceFilter(deviceID), opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNoReadings
	}
	if err != nil {
		return Record{}, fmt.Errorf("find latest reading: %w", err)
	}
	return rec, nil
}

func (s *MongoStore) History(ctx context.Context, deviceID string, page, perPage int) (Page, error) {
	page, perPage = NormalizePage(page, perPage)
	filter := deviceFilter(deviceID)

	total, err := s.readings.CountDocuments(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("count readings: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
	cur, err := s.readings.Find(ctx, filter, opts)
	if err != nil {
		return Page{}, fmt.Errorf("find readings: %w", err)
	}
	defer cur.Close(ctx)

	records := []Record{}
	if err := cur.All(ctx, &records); err != nil {
		return Page{}, fmt.Errorf("decode readings: %w", err)
	}

	return Page{Records: records, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
