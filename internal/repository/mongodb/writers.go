package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

func (r *MongoDBRepository) InsertCustomer(ctx context.Context, customer *models.Customer) error {
	if customer.ID.IsZero() {
		customer.ID = primitive.NewObjectID()
	}
	if _, err := r.db.Collection(customersColl).InsertOne(ctx, customer); err != nil {
		return translate(err, "insert customer")
	}
	return nil
}

func (r *MongoDBRepository) UpdateCustomer(ctx context.Context, customer models.Customer) error {
	res, err := r.db.Collection(customersColl).ReplaceOne(ctx, bson.M{"_id": customer.ID}, customer)
	if err != nil {
		return translate(err, "update customer")
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MongoDBRepository) DeleteCustomer(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.Collection(customersColl).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "delete customer")
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MongoDBRepository) InsertUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := r.db.Collection(usersColl).InsertOne(ctx, user); err != nil {
		return translate(err, "insert user")
	}
	return nil
}

func (r *MongoDBRepository) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.db.Collection(usersColl).FindOne(ctx, bson.M{"username": username}).Decode(&u); err != nil {
		return nil, translate(err, "find user")
	}
	return &u, nil
}

func (r *MongoDBRepository) FindUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	if err := r.findAll(ctx, usersColl, bson.M{}, opts, &out); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}
