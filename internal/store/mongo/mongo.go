// Package mongo stores users and providers as native documents. Reviews are
// appended with $push so concurrent writers never overwrite each other.
package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"service-finder/internal/providers"
	"service-finder/internal/store"
	"service-finder/internal/users"
	mongoclient "service-finder/pkg/mongo"
)

func mapErr(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}

type Users struct {
	coll *mongo.Collection
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{coll: db.Collection(mongoclient.UsersCollection)}
}

func (s *Users) Create(ctx context.Context, u *users.User) error {
	_, err := s.coll.InsertOne(ctx, u)
	return mapErr(err)
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	var u users.User
	if err := s.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

type Providers struct {
	coll *mongo.Collection
}

func NewProviders(db *mongo.Database) *Providers {
	return &Providers{coll: db.Collection(mongoclient.ProvidersCollection)}
}

func (s *Providers) Create(ctx context.Context, p *providers.Provider) error {
	_, err := s.coll.InsertOne(ctx, p)
	return mapErr(err)
}

func (s *Providers) FindByEmail(ctx context.Context, email string) (*providers.Provider, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *Providers) FindByID(ctx context.Context, id string) (*providers.Provider, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Providers) List(ctx context.Context, category providers.Category) ([]*providers.Provider, error) {
	filter := bson.D{}
	if category != "" {
		filter = bson.D{{Key: "serviceCategory", Value: string(category)}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []*providers.Provider{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for _, p := range out {
		normalize(p)
	}
	return out, nil
}

func (s *Providers) AppendReview(ctx context.Context, id string, r providers.Review) (*providers.Provider, error) {
	var p providers.Provider
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "reviews", Value: r}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return nil, mapErr(err)
	}
	normalize(&p)
	return &p, nil
}

func (s *Providers) findOne(ctx context.Context, filter bson.D) (*providers.Provider, error) {
	var p providers.Provider
	if err := s.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		return nil, mapErr(err)
	}
	normalize(&p)
	return &p, nil
}

func normalize(p *providers.Provider) {
	if p.Reviews == nil {
		p.Reviews = []providers.Review{}
	}
}
