package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reservation states. Returned is terminal; Active moves to Overdue lazily
// when the due date passes, and either of those moves to Returned exactly once.
const (
	ReservationActive   = "active"
	ReservationReturned = "returned"
	ReservationOverdue  = "overdue"
)

var ValidReservationStatuses = []string{ReservationActive, ReservationReturned, ReservationOverdue}

// ReservationStatusValid reports whether status names a known state.
func ReservationStatusValid(status string) bool {
	for _, s := range ValidReservationStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Reservation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	BookID     primitive.ObjectID `bson:"bookId" json:"bookId"`
	ReservedAt time.Time          `bson:"reservedAt" json:"reservedAt"`
	DueAt      time.Time          `bson:"dueAt" json:"dueAt"`
	ReturnedAt *time.Time         `bson:"returnedAt" json:"returnedAt"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserSummary is the denormalized view embedded in reservation responses.
type UserSummary struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

// Summary builds the short form used by reservation payloads.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
