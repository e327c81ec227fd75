package directory

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// DefaultCollection is the users collection name.
const DefaultCollection = "users"

// userDocument mirrors a document in the users collection.
type userDocument struct {
	ID       string `bson:"_id"`
	Name     string `bson:"name"`
	IsAdmin  bool   `bson:"isAdmin"`
	FCMToken string `bson:"fcmToken,omitempty"`
}

func (d userDocument) profile() Profile {
	return Profile{
		ID:            d.ID,
		DisplayName:   d.Name,
		IsAdmin:       d.IsAdmin,
		DeliveryToken: d.FCMToken,
	}
}

// Mongo reads profiles from a MongoDB collection keyed by user id.
type Mongo struct {
	coll *mongo.Collection
}

// NewMongo uses collection name of db; an empty name selects DefaultCollection.
func NewMongo(db *mongo.Database, name string) *Mongo {
	if name == "" {
		name = DefaultCollection
	}
	return &Mongo{coll: db.Collection(name)}
}

func (m *Mongo) Get(ctx context.Context, id string) (Profile, error) {
	var doc userDocument
	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("directory: mongo find user %q: %w", id, err)
	}
	return doc.profile(), nil
}

func (m *Mongo) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	res, err := m.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "isAdmin", Value: isAdmin}}}},
	)
	if err != nil {
		return fmt.Errorf("directory: mongo update user %q: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
