package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/libreserve/backend/models"
	"github.com/libreserve/backend/service"
	"github.com/libreserve/backend/store"
	"github.com/libreserve/backend/utils"
)

type BooksHandler struct {
	DB    *store.DB
	Clock service.Clock
}

type CreateBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	Publisher   string `json:"publisher"`
	PublishDate string `json:"publishDate"`
}

func (r CreateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Author, validation.Required, validation.Length(1, 150)),
		validation.Field(&r.Genre, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Publisher, validation.Length(0, 150)),
		validation.Field(&r.PublishDate, validation.Date("2006-01-02")),
	)
}

type UpdateBookRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Genre       *string `json:"genre"`
	Publisher   *string `json:"publisher"`
	PublishDate *string `json:"publishDate"`
}

func bookIDParam(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return id, err == nil
}

// Create adds a catalog entry. New books always start available; only the
// reservation lifecycle may flip that flag afterwards.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	now := h.Clock.Now()
	book := &models.Book{
		Title:       req.Title,
		Author:      req.Author,
		Genre:       req.Genre,
		Publisher:   req.Publisher,
		PublishDate: req.PublishDate,
		Available:   true,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := h.DB.InsertBook(r.Context(), book)
	if err != nil {
		writeServiceError(w, r, service.Internal("failed to create book", err))
		return
	}
	book.ID = id
	writeJSON(w, http.StatusCreated, book)
}

// Get returns an active book.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid book id"})
		return
	}
	book, err := h.DB.ActiveBookByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, service.Internal("failed to load book", err))
		return
	}
	if book == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "book not found or inactive"})
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type bookListResponse struct {
	Data       []models.Book    `json:"data"`
	Pagination utils.Pagination `json:"pagination"`
}

// List returns a filtered, paginated page of active books, newest first.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.BookFilter{
		Title:     q.Get("title"),
		Author:    q.Get("author"),
		Genre:     q.Get("genre"),
		Publisher: q.Get("publisher"),
	}
	if v := q.Get("available"); v != "" {
		avail := v == "true"
		filter.Available = &avail
	}
	page := utils.ParsePageParams(q.Get("page"), q.Get("limit"))

	books, total, err := h.DB.ListBooks(r.Context(), filter, page)
	if err != nil {
		writeServiceError(w, r, service.Internal("failed to list books", err))
		return
	}
	if books == nil {
		books = []models.Book{}
	}
	writeJSON(w, http.StatusOK, bookListResponse{
		Data:       books,
		Pagination: utils.BuildPagination(total, page),
	})
}

// Update modifies catalog fields of an active book. Availability is not an
// editable field here.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := bookIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid book id"})
		return
	}
	var req UpdateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	book, err := h.DB.ActiveBookByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, service.Internal("failed to load book", err))
		return
	}
	if book == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "book not found or inactive"})
		return
	}
	err = h.DB.UpdateBook(r.Context(), id, store.BookUpdate{
		Title:       req.Title,
		Author:      req.Author,
		Genre:       req.Genre,
		Publisher:   req.Publisher,
		PublishDate: req.PublishDate,
	}, h.Clock.Now())
	if err != nil {
		writeServiceError(w, r, service.Internal("failed to update book", err))
		return
	}
	updated, err := h.DB.BookByID(r.Context(), id)
	if err != nil || updated == nil {
		writeServiceError(w, r, service.Internal("failed to load book", err))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Deactivate soft-deletes a book from the catalog.
func (h *BooksHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := bookIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid book id"})
		return
	}
	book, err := h.DB.ActiveBookByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, service.Internal("failed to load book", err))
		return
	}
	if book == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "book not found or already inactive"})
		return
	}
	if err := h.DB.DeactivateBook(r.Context(), id, h.Clock.Now()); err != nil {
		writeServiceError(w, r, service.Internal("failed to deactivate book", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "book deactivated",
		"book": map[string]any{
			"id":     book.ID.Hex(),
			"title":  book.Title,
			"active": false,
		},
	})
}
