package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/libreserve/backend/middleware"
	"github.com/libreserve/backend/models"
	"github.com/libreserve/backend/service"
)

type ReservationsHandler struct {
	Reservations *service.Reservations
}

type CreateReservationRequest struct {
	BookID string    `json:"bookId"`
	DueAt  time.Time `json:"dueAt"`
}

// Create reserves a book for the authenticated caller.
func (h *ReservationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	var req CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	if req.BookID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "book id and due date are required"})
		return
	}
	bookID, err := primitive.ObjectIDFromHex(req.BookID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid book id"})
		return
	}
	detail, err := h.Reservations.Create(r.Context(), actor.ID, bookID, req.DueAt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "reservation created",
		"reservation": detail,
	})
}

// ListMine returns the caller's reservations. The default view hides
// finished ones; ?status= or ?include_finished=true widens it.
func (h *ReservationsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	q := r.URL.Query()
	filter := service.UserListFilter{
		IncludeFinished: q.Get("include_finished") == "true",
	}
	// An unrecognized status falls back to the default view.
	if s := q.Get("status"); models.ReservationStatusValid(s) {
		filter.Status = s
	}
	result, err := h.Reservations.ListForUser(r.Context(), actor.ID, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := map[string]any{
		"total":        len(result.Reservations),
		"reservations": result.Reservations,
	}
	if result.Message != "" {
		resp["message"] = result.Message
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListForBook returns every reservation on an active book.
func (h *ReservationsHandler) ListForBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid book id"})
		return
	}
	result, err := h.Reservations.ListForBook(r.Context(), bookID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"book":         result.Book,
		"reservations": result.Reservations,
	})
}

// Return closes out a reservation; the owner or a return_reservations holder
// may call it.
func (h *ReservationsHandler) Return(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid reservation id"})
		return
	}
	result, err := h.Reservations.Return(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	message := "reservation returned"
	if result.Late {
		message = "reservation returned (late)"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     message,
		"late":        result.Late,
		"reservation": result.Reservation,
	})
}
