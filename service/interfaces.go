package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/libreserve/backend/models"
)

// UserStore is the persistence surface for user accounts. Lookup methods
// return (nil, nil) when no matching record exists.
type UserStore interface {
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ActiveUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	UpdateUserProfile(ctx context.Context, id primitive.ObjectID, name, email, passwordHash *string, now time.Time) error
	UpdateUserAccess(ctx context.Context, id primitive.ObjectID, role *string, permissions []string, now time.Time) error
	DeactivateUser(ctx context.Context, id primitive.ObjectID, now time.Time) error
}

// BookStore is the persistence surface the reservation lifecycle needs from
// the catalog. ClaimBook and SetBookAvailable are the only availability
// mutations in the system; nothing else may flip the flag.
type BookStore interface {
	// BookByID returns the book regardless of its active flag.
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	// ActiveBookByID returns (nil, nil) for missing or soft-deleted books.
	ActiveBookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	// ClaimBook atomically flips available true->false on an active book.
	// It reports false when the book was not claimable, which is how a
	// concurrent racer loses without ever double-booking.
	ClaimBook(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)
	// SetBookAvailable persists the availability flag unconditionally,
	// independent of the book's active flag.
	SetBookAvailable(ctx context.Context, id primitive.ObjectID, available bool, now time.Time) error
}

// ReservationStore is the persistence surface for reservations.
type ReservationStore interface {
	InsertReservation(ctx context.Context, res *models.Reservation) (primitive.ObjectID, error)
	ReservationByID(ctx context.Context, id primitive.ObjectID) (*models.Reservation, error)
	// ActiveReservationExists reports whether the (user, book) pair has a
	// reservation in the active state.
	ActiveReservationExists(ctx context.Context, userID, bookID primitive.ObjectID) (bool, error)
	// ReservationsForUser returns the user's reservations, newest first.
	// An empty statuses slice means all statuses.
	ReservationsForUser(ctx context.Context, userID primitive.ObjectID, statuses []string) ([]models.Reservation, error)
	// ReservationsForBook returns all reservations for the book, newest first.
	ReservationsForBook(ctx context.Context, bookID primitive.ObjectID) ([]models.Reservation, error)
	// MarkOverdue moves every active reservation with dueAt strictly before
	// now into the overdue state and reports how many changed.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	// CompleteReservation conditionally transitions the reservation to
	// returned, setting returnedAt. It returns (nil, nil) when the
	// reservation was already returned, so a concurrent second return
	// cannot succeed.
	CompleteReservation(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.Reservation, error)
}
