package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/libreserve/backend/models"
)

func (db *DB) InsertReservation(ctx context.Context, res *models.Reservation) (primitive.ObjectID, error) {
	out, err := db.Reservations().InsertOne(ctx, res)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return out.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) ReservationByID(ctx context.Context, id primitive.ObjectID) (*models.Reservation, error) {
	var r models.Reservation
	err := db.Reservations().FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) ActiveReservationExists(ctx context.Context, userID, bookID primitive.ObjectID) (bool, error) {
	count, err := db.Reservations().CountDocuments(ctx, bson.M{
		"userId": userID,
		"bookId": bookID,
		"status": models.ReservationActive,
	})
	return count > 0, err
}

func (db *DB) ReservationsForUser(ctx context.Context, userID primitive.ObjectID, statuses []string) ([]models.Reservation, error) {
	filter := bson.M{"userId": userID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return db.findReservations(ctx, filter)
}

func (db *DB) ReservationsForBook(ctx context.Context, bookID primitive.ObjectID) ([]models.Reservation, error) {
	return db.findReservations(ctx, bson.M{"bookId": bookID})
}

func (db *DB) findReservations(ctx context.Context, filter bson.M) ([]models.Reservation, error) {
	cur, err := db.Reservations().Find(ctx, filter, options.Find().SetSort(bson.M{"reservedAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Reservation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkOverdue promotes every active reservation strictly past its due date.
// A single UpdateMany keeps the sweep idempotent.
func (db *DB) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.Reservations().UpdateMany(ctx,
		bson.M{"status": models.ReservationActive, "dueAt": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"status": models.ReservationOverdue, "updatedAt": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CompleteReservation conditionally transitions to returned. The status
// filter serializes concurrent returns: the loser matches no document and
// gets (nil, nil).
func (db *DB) CompleteReservation(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.Reservation, error) {
	var r models.Reservation
	err := db.Reservations().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.ReservationReturned}},
		bson.M{"$set": bson.M{
			"status":     models.ReservationReturned,
			"returnedAt": now,
			"updatedAt":  now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
