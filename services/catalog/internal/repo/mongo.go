package repo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/services/catalog/internal/models"
)

const listingsCollection = "listings"

type MongoRepo struct {
	Coll *mongo.Collection
}

func NewMongo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{Coll: db.Collection(listingsCollection)}
}

func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.Coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *MongoRepo) Create(ctx context.Context, l *models.Listing) error {
	_, err := r.Coll.InsertOne(ctx, l)
	return err
}

func (r *MongoRepo) Get(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	if err := r.Coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *MongoRepo) ListActive(ctx context.Context) ([]models.Listing, error) {
	return r.find(ctx, bson.M{"status": moderation.StatusActive, "in_stock": true})
}

func (r *MongoRepo) ListAll(ctx context.Context) ([]models.Listing, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoRepo) ListByOwner(ctx context.Context, ownerID string, activeOnly bool) ([]models.Listing, error) {
	filter := bson.M{"owner_id": ownerID}
	if activeOnly {
		filter["status"] = moderation.StatusActive
	}
	return r.find(ctx, filter)
}

func (r *MongoRepo) find(ctx context.Context, filter bson.M) ([]models.Listing, error) {
	cur, err := r.Coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := make([]models.Listing, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepo) Update(ctx context.Context, l *models.Listing) error {
	res, err := r.Coll.UpdateByID(ctx, l.ID, bson.M{"$set": bson.M{
		"name":        l.Name,
		"description": l.Description,
		"price":       l.Price,
		"image":       l.Image,
		"category":    l.Category,
		"in_stock":    l.InStock,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrListingNotFound
	}
	return nil
}

func (r *MongoRepo) SetStatus(ctx context.Context, id string, status moderation.Status, bannedBy *string) (*models.Listing, error) {
	var l models.Listing
	err := r.Coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "banned_by": bannedBy}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&l)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.Coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrListingNotFound
	}
	return nil
}
