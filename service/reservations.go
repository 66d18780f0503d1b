package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/libreserve/backend/authz"
	"github.com/libreserve/backend/logger"
	"github.com/libreserve/backend/metrics"
	"github.com/libreserve/backend/models"
)

// Reservations owns the reservation lifecycle: creation, lazy expiration,
// listing, and return. All status-sensitive reads run an expiration sweep
// first, so the status a caller observes is always current even though no
// background timer exists.
type Reservations struct {
	users UserStore
	books BookStore
	store ReservationStore
	clock Clock
	log   *slog.Logger
}

// NewReservations wires the lifecycle engine to its collaborators.
func NewReservations(users UserStore, books BookStore, store ReservationStore, clock Clock) *Reservations {
	if clock == nil {
		clock = SystemClock
	}
	return &Reservations{
		users: users,
		books: books,
		store: store,
		clock: clock,
		log:   logger.Default(),
	}
}

// ReservationDetail is a reservation plus the denormalized book/user
// summaries callers want alongside it.
type ReservationDetail struct {
	models.Reservation
	Book *models.BookSummary `json:"book,omitempty"`
	User *models.UserSummary `json:"user,omitempty"`
}

// UserListFilter narrows ListForUser. An explicit Status wins over
// IncludeFinished; with neither set, finished reservations are excluded.
type UserListFilter struct {
	Status          string
	IncludeFinished bool
}

// UserListResult carries the reservations and, when empty, a message
// explaining which filter produced the empty result.
type UserListResult struct {
	Reservations []ReservationDetail
	Message      string
}

// BookListResult is ListForBook's payload.
type BookListResult struct {
	Book         models.BookSummary
	Reservations []ReservationDetail
}

// ReturnResult is Return's payload. Late is computed against the original
// due date at return time; it is informational, not a state.
type ReturnResult struct {
	Reservation models.Reservation
	Late        bool
}

// retry re-invokes op once on failure. Conflict and unexpected persistence
// errors get a single retry before they surface to the caller.
func retry(op func() error) error {
	if err := op(); err == nil {
		return nil
	}
	return op()
}

// Create reserves a book for a user. Preconditions are checked in a fixed
// order and the first failure wins: inputs present, due date in the future,
// book active, book available, no duplicate active reservation. The actual
// claim on the book is an atomic conditional update, so two concurrent
// creates can never both succeed.
func (s *Reservations) Create(ctx context.Context, userID, bookID primitive.ObjectID, dueAt time.Time) (*ReservationDetail, error) {
	now := s.clock.Now()

	if bookID.IsZero() || dueAt.IsZero() {
		return nil, NewError(KindIncompleteInput, "book id and due date are required")
	}
	if !dueAt.After(now) {
		return nil, NewError(KindInvalidDate, "due date must be in the future")
	}

	book, err := s.books.ActiveBookByID(ctx, bookID)
	if err != nil {
		return nil, Internal("failed to load book", err)
	}
	if book == nil {
		return nil, NewError(KindNotFound, "book not found or inactive")
	}

	// The duplicate check runs before the availability check: a holder's own
	// reservation makes the book unavailable, and the more specific failure
	// must win for that caller.
	exists, err := s.store.ActiveReservationExists(ctx, userID, bookID)
	if err != nil {
		return nil, Internal("failed to check existing reservations", err)
	}
	if exists {
		return nil, NewError(KindDuplicateReservation, "you already have an active reservation for this book")
	}
	if !book.Available {
		return nil, NewError(KindUnavailable, "book is not available for reservation")
	}

	claimed, err := s.books.ClaimBook(ctx, bookID, now)
	if err != nil {
		return nil, Internal("failed to claim book", err)
	}
	if !claimed {
		// A concurrent reservation won the race.
		return nil, NewError(KindUnavailable, "book is not available for reservation")
	}

	res := &models.Reservation{
		UserID:     userID,
		BookID:     bookID,
		ReservedAt: now,
		DueAt:      dueAt,
		ReturnedAt: nil,
		Status:     models.ReservationActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	var id primitive.ObjectID
	err = retry(func() error {
		var ierr error
		id, ierr = s.store.InsertReservation(ctx, res)
		return ierr
	})
	if err != nil {
		// Undo the claim so the failed create leaves no observable trace.
		if relErr := s.books.SetBookAvailable(ctx, bookID, true, now); relErr != nil {
			s.log.Error("failed to release book after insert failure",
				slog.String("book_id", bookID.Hex()), slog.Any("error", relErr))
		}
		return nil, Internal("failed to create reservation", err)
	}
	res.ID = id

	metrics.ReservationsCreated.Inc()
	s.log.Info("reservation created",
		slog.String("reservation_id", id.Hex()),
		slog.String("user_id", userID.Hex()),
		slog.String("book_id", bookID.Hex()),
		slog.Time("due_at", dueAt))

	detail := &ReservationDetail{Reservation: *res}
	book.Available = false
	summary := book.Summary()
	detail.Book = &summary
	if user, uerr := s.users.UserByID(ctx, userID); uerr == nil && user != nil {
		us := user.Summary()
		detail.User = &us
	}
	return detail, nil
}

// SweepExpired promotes every active reservation past its due date to
// overdue. It is idempotent and must run before any status-sensitive read.
// The boundary is strict: a reservation exactly at its due date stays active.
func (s *Reservations) SweepExpired(ctx context.Context) error {
	now := s.clock.Now()
	var moved int64
	err := retry(func() error {
		var serr error
		moved, serr = s.store.MarkOverdue(ctx, now)
		return serr
	})
	if err != nil {
		return Internal("failed to sweep expired reservations", err)
	}
	if moved > 0 {
		metrics.ReservationsSweptOverdue.Add(float64(moved))
		s.log.Info("reservations marked overdue", slog.Int64("count", moved))
	}
	return nil
}

// ListForUser returns the user's reservations, newest first. The default
// view hides finished reservations; an explicit status filter or the
// include-finished flag widens it.
func (s *Reservations) ListForUser(ctx context.Context, userID primitive.ObjectID, filter UserListFilter) (*UserListResult, error) {
	if err := s.SweepExpired(ctx); err != nil {
		return nil, err
	}

	var statuses []string
	switch {
	case filter.Status != "":
		statuses = []string{filter.Status}
	case filter.IncludeFinished:
		statuses = nil
	default:
		statuses = []string{models.ReservationActive, models.ReservationOverdue}
	}

	list, err := s.store.ReservationsForUser(ctx, userID, statuses)
	if err != nil {
		return nil, Internal("failed to list reservations", err)
	}

	result := &UserListResult{Reservations: s.withBookSummaries(ctx, list)}
	if len(list) == 0 {
		switch {
		case filter.Status != "":
			result.Message = fmt.Sprintf("you have no reservations with status %q", filter.Status)
		case filter.IncludeFinished:
			result.Message = "you have no reservations"
		default:
			result.Message = "you have no active reservations"
		}
	}
	return result, nil
}

// ListForBook returns every reservation for an active book across all
// statuses, newest first.
func (s *Reservations) ListForBook(ctx context.Context, bookID primitive.ObjectID) (*BookListResult, error) {
	if err := s.SweepExpired(ctx); err != nil {
		return nil, err
	}

	book, err := s.books.ActiveBookByID(ctx, bookID)
	if err != nil {
		return nil, Internal("failed to load book", err)
	}
	if book == nil {
		return nil, NewError(KindNotFound, "book not found or inactive")
	}

	list, err := s.store.ReservationsForBook(ctx, bookID)
	if err != nil {
		return nil, Internal("failed to list reservations", err)
	}

	details := make([]ReservationDetail, 0, len(list))
	for i := range list {
		d := ReservationDetail{Reservation: list[i]}
		if user, uerr := s.users.UserByID(ctx, list[i].UserID); uerr == nil && user != nil {
			us := user.Summary()
			d.User = &us
		}
		details = append(details, d)
	}
	return &BookListResult{Book: book.Summary(), Reservations: details}, nil
}

// Return transitions a reservation to the terminal returned state and frees
// the book. The actor must own the reservation or hold the override
// permission. A deactivated book still accepts the return.
func (s *Reservations) Return(ctx context.Context, reservationID primitive.ObjectID, actor Actor) (*ReturnResult, error) {
	now := s.clock.Now()

	res, err := s.store.ReservationByID(ctx, reservationID)
	if err != nil {
		return nil, Internal("failed to load reservation", err)
	}
	if res == nil {
		return nil, NewError(KindNotFound, "reservation not found")
	}

	if !authz.OwnerOrPermitted(actor.ID, res.UserID, actor.Permissions, models.PermReturnReservations) {
		return nil, NewError(KindForbidden, "you do not have permission to return this reservation")
	}

	if res.Status == models.ReservationReturned {
		return nil, NewError(KindAlreadyReturned, "this reservation has already been returned")
	}

	var updated *models.Reservation
	err = retry(func() error {
		var cerr error
		updated, cerr = s.store.CompleteReservation(ctx, reservationID, now)
		return cerr
	})
	if err != nil {
		return nil, Internal("failed to return reservation", err)
	}
	if updated == nil {
		// Lost a race against a concurrent return.
		return nil, NewError(KindAlreadyReturned, "this reservation has already been returned")
	}

	err = retry(func() error {
		return s.books.SetBookAvailable(ctx, res.BookID, true, now)
	})
	if err != nil {
		return nil, Internal("failed to release book", err)
	}

	// Lateness is judged against the original due date, independent of any
	// earlier lazy transition to overdue.
	late := now.After(res.DueAt)
	metrics.ReservationsReturned.WithLabelValues(strconv.FormatBool(late)).Inc()
	s.log.Info("reservation returned",
		slog.String("reservation_id", reservationID.Hex()),
		slog.String("book_id", res.BookID.Hex()),
		slog.Bool("late", late))

	return &ReturnResult{Reservation: *updated, Late: late}, nil
}

func (s *Reservations) withBookSummaries(ctx context.Context, list []models.Reservation) []ReservationDetail {
	details := make([]ReservationDetail, 0, len(list))
	for i := range list {
		d := ReservationDetail{Reservation: list[i]}
		if book, err := s.books.BookByID(ctx, list[i].BookID); err == nil && book != nil {
			bs := book.Summary()
			d.Book = &bs
		}
		details = append(details, d)
	}
	return details
}
