package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/libreserve/backend/models"
)

// fakeClock pins time for deterministic lifecycle tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// memStore is an in-memory implementation of the persistence interfaces with
// the same conditional-update semantics as the MongoDB store.
type memStore struct {
	mu           sync.Mutex
	users        map[primitive.ObjectID]*models.User
	books        map[primitive.ObjectID]*models.Book
	reservations map[primitive.ObjectID]*models.Reservation

	failInserts int // fail this many upcoming InsertReservation calls
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[primitive.ObjectID]*models.User),
		books:        make(map[primitive.ObjectID]*models.Book),
		reservations: make(map[primitive.ObjectID]*models.Reservation),
	}
}

func (m *memStore) addUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = &u
	return &u
}

func (m *memStore) addBook(b models.Book) *models.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	m.books[b.ID] = &b
	return &b
}

// --- UserStore ---

func (m *memStore) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ActiveUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := m.UserByID(ctx, id)
	if err != nil || u == nil || !u.Active {
		return nil, err
	}
	return u, nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID()
	cp := *user
	cp.ID = id
	m.users[id] = &cp
	return id, nil
}

func (m *memStore) UpdateUserProfile(_ context.Context, id primitive.ObjectID, name, email, passwordHash *string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return errors.New("user not found")
	}
	if name != nil {
		u.Name = *name
	}
	if email != nil {
		u.Email = *email
	}
	if passwordHash != nil {
		u.Password = *passwordHash
	}
	u.UpdatedAt = now
	return nil
}

func (m *memStore) UpdateUserAccess(_ context.Context, id primitive.ObjectID, role *string, permissions []string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return errors.New("user not found")
	}
	if role != nil {
		u.Role = *role
	}
	if permissions != nil {
		u.Permissions = permissions
	}
	u.UpdatedAt = now
	return nil
}

func (m *memStore) DeactivateUser(_ context.Context, id primitive.ObjectID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return errors.New("user not found")
	}
	u.Active = false
	u.UpdatedAt = now
	return nil
}

// --- BookStore ---

func (m *memStore) BookByID(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ActiveBookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	b, err := m.BookByID(ctx, id)
	if err != nil || b == nil || !b.Active {
		return nil, err
	}
	return b, nil
}

func (m *memStore) ClaimBook(_ context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok || !b.Active || !b.Available {
		return false, nil
	}
	b.Available = false
	b.UpdatedAt = now
	return true, nil
}

func (m *memStore) SetBookAvailable(_ context.Context, id primitive.ObjectID, available bool, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return errors.New("book not found")
	}
	b.Available = available
	b.UpdatedAt = now
	return nil
}

// --- ReservationStore ---

func (m *memStore) InsertReservation(_ context.Context, res *models.Reservation) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInserts > 0 {
		m.failInserts--
		return primitive.NilObjectID, errors.New("write failed")
	}
	id := primitive.NewObjectID()
	cp := *res
	cp.ID = id
	m.reservations[id] = &cp
	return id, nil
}

func (m *memStore) ReservationByID(_ context.Context, id primitive.ObjectID) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reservations[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ActiveReservationExists(_ context.Context, userID, bookID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.UserID == userID && r.BookID == bookID && r.Status == models.ReservationActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ReservationsForUser(_ context.Context, userID primitive.ObjectID, statuses []string) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, r := range m.reservations {
		if r.UserID != userID {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, r.Status) {
			continue
		}
		out = append(out, *r)
	}
	sortByReservedAtDesc(out)
	return out, nil
}

func (m *memStore) ReservationsForBook(_ context.Context, bookID primitive.ObjectID) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, r := range m.reservations {
		if r.BookID == bookID {
			out = append(out, *r)
		}
	}
	sortByReservedAtDesc(out)
	return out, nil
}

func (m *memStore) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var moved int64
	for _, r := range m.reservations {
		if r.Status == models.ReservationActive && r.DueAt.Before(now) {
			r.Status = models.ReservationOverdue
			r.UpdatedAt = now
			moved++
		}
	}
	return moved, nil
}

func (m *memStore) CompleteReservation(_ context.Context, id primitive.ObjectID, now time.Time) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status == models.ReservationReturned {
		return nil, nil
	}
	r.Status = models.ReservationReturned
	t := now
	r.ReturnedAt = &t
	r.UpdatedAt = now
	cp := *r
	return &cp, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortByReservedAtDesc(list []models.Reservation) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].ReservedAt.After(list[j].ReservedAt)
	})
}
