package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

func (r *MongoDBRepository) CustomerByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.Collection(customersColl).FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err, "find customer")
	}
	return &c, nil
}

func (r *MongoDBRepository) ProductByCode(ctx context.Context, code string) (*models.Product, error) {
	var p models.Product
	if err := r.db.Collection(productsColl).FindOne(ctx, bson.M{"code": code}).Decode(&p); err != nil {
		return nil, translate(err, "find product "+code)
	}
	return &p, nil
}

func (r *MongoDBRepository) ProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := r.db.Collection(productsColl).FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err, "find product")
	}
	return &p, nil
}

func (r *MongoDBRepository) OrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	if err := r.db.Collection(ordersColl).FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, translate(err, "find order")
	}
	return &o, nil
}

func (r *MongoDBRepository) OrderLines(ctx context.Context, orderID primitive.ObjectID) ([]models.OrderLine, error) {
	return r.FindLines(ctx, repository.LineFilter{OrderIDs: []primitive.ObjectID{orderID}})
}

// FindOrders returns matching orders, newest first.
func (r *MongoDBRepository) FindOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	q := bson.M{}
	if len(filter.IDs) > 0 {
		q["_id"] = bson.M{"$in": filter.IDs}
	}
	if filter.CustomerID != nil {
		q["customerId"] = *filter.CustomerID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.UnpaidOnly {
		q["isPaid"] = false
	}
	addRange(q, "date", filter.From, filter.To)

	var out []models.Order
	if err := r.findAll(ctx, ordersColl, q, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoDBRepository) FindLines(ctx context.Context, filter repository.LineFilter) ([]models.OrderLine, error) {
	q := bson.M{}
	if len(filter.OrderIDs) > 0 {
		q["orderId"] = bson.M{"$in": filter.OrderIDs}
	}
	if filter.ProductCode != "" {
		q["productCode"] = filter.ProductCode
	}

	var out []models.OrderLine
	if err := r.findAll(ctx, linesColl, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindPayments returns matching payments, newest first.
func (r *MongoDBRepository) FindPayments(ctx context.Context, filter repository.PaymentFilter) ([]models.Payment, error) {
	q := bson.M{}
	if filter.CustomerID != nil {
		q["customerId"] = *filter.CustomerID
	}
	if filter.OrderID != nil {
		q["orderId"] = *filter.OrderID
	}
	if len(filter.Types) > 0 {
		q["type"] = bson.M{"$in": filter.Types}
	}
	addRange(q, "date", filter.From, filter.To)

	var out []models.Payment
	if err := r.findAll(ctx, paymentsColl, q, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindMovements returns matching movements, oldest first.
func (r *MongoDBRepository) FindMovements(ctx context.Context, filter repository.MovementFilter) ([]models.StockMovement, error) {
	q := bson.M{}
	if filter.ProductCode != "" {
		q["productCode"] = filter.ProductCode
	}
	if filter.Type != "" {
		q["type"] = filter.Type
	}
	addRange(q, "date", filter.From, filter.To)

	var out []models.StockMovement
	sort := bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}
	if err := r.findAll(ctx, movementsColl, q, options.Find().SetSort(sort), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoDBRepository) FindProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := r.findAll(ctx, productsColl, bson.M{}, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoDBRepository) FindCustomers(ctx context.Context, filter repository.CustomerFilter) ([]models.Customer, int64, error) {
	q := bson.M{}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		q["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"phone": pattern}}
	}

	coll := r.db.Collection(customersColl)
	total, err := coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if filter.Skip > 0 {
		opts.SetSkip(filter.Skip)
	}
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	var out []models.Customer
	if err := r.findAll(ctx, customersColl, q, opts, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *MongoDBRepository) findAll(ctx context.Context, coll string, filter bson.M, opts *options.FindOptions, out interface{}) error {
	cur, err := r.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", coll, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll, err)
	}
	return nil
}

func addRange(q bson.M, field string, from, to time.Time) {
	if from.IsZero() && to.IsZero() {
		return
	}
	cond := bson.M{}
	if !from.IsZero() {
		cond["$gte"] = from
	}
	if !to.IsZero() {
		cond["$lte"] = to
	}
	q[field] = cond
}
