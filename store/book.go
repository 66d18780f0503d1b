package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/libreserve/backend/models"
	"github.com/libreserve/backend/utils"
)

func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	return db.findBook(ctx, bson.M{"_id": id})
}

func (db *DB) ActiveBookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	return db.findBook(ctx, bson.M{"_id": id, "active": true})
}

func (db *DB) findBook(ctx context.Context, filter bson.M) (*models.Book, error) {
	var b models.Book
	err := db.Books().FindOne(ctx, filter).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	res, err := db.Books().InsertOne(ctx, book)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// BookFilter narrows ListBooks. String fields match case-insensitively as
// substrings; Available is a tri-state pointer.
type BookFilter struct {
	Title     string
	Author    string
	Genre     string
	Publisher string
	Available *bool
}

func (f BookFilter) query() bson.M {
	q := bson.M{"active": true}
	regex := func(v string) bson.M {
		return bson.M{"$regex": v, "$options": "i"}
	}
	if f.Title != "" {
		q["title"] = regex(f.Title)
	}
	if f.Author != "" {
		q["author"] = regex(f.Author)
	}
	if f.Genre != "" {
		q["genre"] = regex(f.Genre)
	}
	if f.Publisher != "" {
		q["publisher"] = regex(f.Publisher)
	}
	if f.Available != nil {
		q["available"] = *f.Available
	}
	return q
}

// ListBooks returns a page of active books matching the filter, newest first,
// along with the total match count for pagination metadata.
func (db *DB) ListBooks(ctx context.Context, filter BookFilter, page utils.PageParams) ([]models.Book, int64, error) {
	q := filter.query()
	total, err := db.Books().CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(page.Offset).
		SetLimit(page.Limit)
	cur, err := db.Books().Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// ClaimBook atomically flips available true->false on an active book. The
// conditional filter serializes concurrent reservation attempts on the same
// book: only one caller observes a modified document.
func (db *DB) ClaimBook(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	res, err := db.Books().UpdateOne(ctx,
		bson.M{"_id": id, "active": true, "available": true},
		bson.M{"$set": bson.M{"available": false, "updatedAt": now}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// SetBookAvailable persists the availability flag regardless of the book's
// active flag; a deactivated book still accepts a return.
func (db *DB) SetBookAvailable(ctx context.Context, id primitive.ObjectID, available bool, now time.Time) error {
	_, err := db.Books().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"available": available, "updatedAt": now}},
	)
	return err
}

// BookUpdate carries optional catalog fields; nil means leave unchanged.
// Availability is deliberately absent: only the reservation lifecycle may
// flip it.
type BookUpdate struct {
	Title       *string
	Author      *string
	Genre       *string
	Publisher   *string
	PublishDate *string
}

func (db *DB) UpdateBook(ctx context.Context, id primitive.ObjectID, upd BookUpdate, now time.Time) error {
	updates := bson.M{"updatedAt": now}
	if upd.Title != nil {
		updates["title"] = *upd.Title
	}
	if upd.Author != nil {
		updates["author"] = *upd.Author
	}
	if upd.Genre != nil {
		updates["genre"] = *upd.Genre
	}
	if upd.Publisher != nil {
		updates["publisher"] = *upd.Publisher
	}
	if upd.PublishDate != nil {
		updates["publishDate"] = *upd.PublishDate
	}
	_, err := db.Books().UpdateOne(ctx, bson.M{"_id": id, "active": true}, bson.M{"$set": updates})
	return err
}

func (db *DB) DeactivateBook(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	_, err := db.Books().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": false, "updatedAt": now}},
	)
	return err
}
