package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/repository"
)

// Execute runs fn in a snapshot transaction and applies the staged unit of work before
// committing. Transient errors are returned to the caller, not retried.
func (r *MongoDBRepository) Execute(ctx context.Context, fn func(ctx context.Context, uow *repository.UnitOfWork) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(txnOpts); err != nil {
			return fmt.Errorf("start transaction: %w", err)
		}

		uow := repository.NewUnitOfWork()
		if err := fn(sc, uow); err != nil {
			r.abort(sc)
			return err
		}
		if err := r.apply(sc, uow); err != nil {
			r.abort(sc)
			return err
		}
		if err := sc.CommitTransaction(sc); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

func (r *MongoDBRepository) abort(sc mongo.SessionContext) {
	// The request context may already be cancelled; abort must still reach the server.
	if err := sc.AbortTransaction(context.WithoutCancel(sc)); err != nil {
		r.logger.Warn("abort transaction failed", zap.Error(err))
	}
}

func (r *MongoDBRepository) apply(ctx context.Context, uow *repository.UnitOfWork) error {
	products := r.db.Collection(productsColl)
	for _, p := range uow.Products() {
		_, err := products.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, options.Replace().SetUpsert(true))
		if err != nil {
			return translate(err, "save product "+p.Code)
		}
	}
	if ids := uow.ProductDeletes(); len(ids) > 0 {
		if _, err := products.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
			return translate(err, "delete products")
		}
	}

	if movements := uow.Movements(); len(movements) > 0 {
		docs := make([]interface{}, 0, len(movements))
		for _, m := range movements {
			docs = append(docs, m)
		}
		if _, err := r.db.Collection(movementsColl).InsertMany(ctx, docs); err != nil {
			return translate(err, "insert stock movements")
		}
	}

	orders := r.db.Collection(ordersColl)
	for _, w := range uow.Orders() {
		if err := applyWrite(ctx, orders, w.Op, w.Order.ID, w.Order); err != nil {
			return translate(err, "write order "+w.Order.Code)
		}
	}

	lines := r.db.Collection(linesColl)
	for _, w := range uow.Lines() {
		if err := applyWrite(ctx, lines, w.Op, w.Line.ID, w.Line); err != nil {
			return translate(err, "write order line")
		}
	}

	payments := r.db.Collection(paymentsColl)
	for _, w := range uow.Payments() {
		if err := applyWrite(ctx, payments, w.Op, w.Payment.ID, w.Payment); err != nil {
			return translate(err, "write payment")
		}
	}
	return nil
}

func applyWrite(ctx context.Context, coll *mongo.Collection, op repository.Op, id primitive.ObjectID, doc interface{}) error {
	switch op {
	case repository.OpInsert:
		_, err := coll.InsertOne(ctx, doc)
		return err
	case repository.OpUpdate:
		res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("%w: %s", repository.ErrNotFound, id.Hex())
		}
		return nil
	case repository.OpDelete:
		_, err := coll.DeleteOne(ctx, bson.M{"_id": id})
		return err
	default:
		return fmt.Errorf("unknown write op %d", op)
	}
}
