package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Book is a catalog entry. Available is owned by the reservation lifecycle:
// it is false exactly while a non-returned reservation exists for the book.
// Active is a soft-delete flag; Available is meaningless once Active is false.
type Book struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Author      string             `bson:"author" json:"author"`
	Genre       string             `bson:"genre" json:"genre"`
	Publisher   string             `bson:"publisher,omitempty" json:"publisher,omitempty"`
	PublishDate string             `bson:"publishDate,omitempty" json:"publishDate,omitempty"`
	Available   bool               `bson:"available" json:"available"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// BookSummary is the denormalized view embedded in reservation responses.
type BookSummary struct {
	ID        primitive.ObjectID `json:"id"`
	Title     string             `json:"title"`
	Author    string             `json:"author"`
	Genre     string             `json:"genre"`
	Available bool               `json:"available"`
}

// Summary builds the short form used by reservation payloads.
func (b *Book) Summary() BookSummary {
	return BookSummary{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Genre:     b.Genre,
		Available: b.Available,
	}
}
