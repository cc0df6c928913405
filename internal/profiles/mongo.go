package profiles

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository using MongoDB; the UID is the _id.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	// email lookups are used by support tooling; not unique because the provider owns uniqueness
	idx := mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Get(ctx context.Context, uid string) (*Profile, error) {
	var p Profile
	if err := r.col.FindOne(ctx, bson.M{"_id": uid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) Create(ctx context.Context, p *Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.UID}, p, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepository) Update(ctx context.Context, uid string, f Fields) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for _, fv := range f.list() {
		set[fv.key] = fv.value
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
