package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/libreserve/backend/models"
)

func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return db.findUser(ctx, bson.M{"_id": id})
}

func (db *DB) ActiveUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return db.findUser(ctx, bson.M{"_id": id, "active": true})
}

func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.findUser(ctx, bson.M{"email": email})
}

func (db *DB) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	res, err := db.Users().InsertOne(ctx, user)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// AdminExists reports whether any active admin account exists; used by the
// startup seed.
func (db *DB) AdminExists(ctx context.Context) (bool, error) {
	count, err := db.Users().CountDocuments(ctx, bson.M{"role": models.RoleAdmin, "active": true})
	return count > 0, err
}

func (db *DB) UpdateUserProfile(ctx context.Context, id primitive.ObjectID, name, email, passwordHash *string, now time.Time) error {
	updates := bson.M{"updatedAt": now}
	if name != nil {
		updates["name"] = *name
	}
	if email != nil {
		updates["email"] = *email
	}
	if passwordHash != nil {
		updates["password"] = *passwordHash
	}
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	return err
}

func (db *DB) UpdateUserAccess(ctx context.Context, id primitive.ObjectID, role *string, permissions []string, now time.Time) error {
	updates := bson.M{"updatedAt": now}
	if role != nil {
		updates["role"] = *role
	}
	if permissions != nil {
		updates["permissions"] = permissions
	}
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	return err
}

func (db *DB) DeactivateUser(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"active": false, "updatedAt": now}})
	return err
}
