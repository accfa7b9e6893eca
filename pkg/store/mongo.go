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
)

// CollectionRuns is the collection runs are written to.
const CollectionRuns = "runs"

// MongoConfig configures a [MongoStore].
type MongoConfig struct {
	URI      string
	Database string
	// Timeout bounds connecting and pinging. Zero means 10s.
	Timeout time.Duration
}

// MongoStore keeps runs in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// runDoc is the BSON form of a Run.
type runDoc struct {
	ID        string    `bson:"_id"`
	Kind      string    `bson:"kind"`
	CreatedAt time.Time `bson:"created_at"`
	InputHash string    `bson:"input_hash"`
	Input     string    `bson:"input"`
	Summary   string    `bson:"summary"`
	Result    []byte    `bson:"result,omitempty"`
}

func toDoc(r *Run) runDoc {
	return runDoc{
		ID:        r.ID,
		Kind:      string(r.Kind),
		CreatedAt: r.CreatedAt,
		InputHash: r.InputHash,
		Input:     r.Input,
		Summary:   r.Summary,
		Result:    r.Result,
	}
}

func (d runDoc) run() *Run {
	return &Run{
		ID:        d.ID,
		Kind:      Kind(d.Kind),
		CreatedAt: d.CreatedAt.UTC(),
		InputHash: d.InputHash,
		Input:     d.Input,
		Summary:   d.Summary,
		Result:    d.Result,
	}
}

// OpenMongo connects, verifies the connection and ensures the indexes.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("empty mongo uri")
	}
	if cfg.Database == "" {
		cfg.Database = "opensurgery"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	runs := client.Database(cfg.Database).Collection(CollectionRuns)
	_, err = runs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return &MongoStore{client: client, runs: runs}, nil
}

// SaveRun upserts run by id.
func (s *MongoStore) SaveRun(ctx context.Context, run *Run) error {
	_, err := s.runs.ReplaceOne(ctx, bson.M{"_id": run.ID}, toDoc(run), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns the run with id.
func (s *MongoStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var doc runDoc
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return doc.run(), nil
}

// ListRuns returns runs newest first.
func (s *MongoStore) ListRuns(ctx context.Context, opts ListOptions) ([]*Run, error) {
	filter := bson.M{}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	find := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(opts.limit()))

	cur, err := s.runs.Find(ctx, filter, find)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var docs []runDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]*Run, len(docs))
	for i, d := range docs {
		out[i] = d.run()
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
