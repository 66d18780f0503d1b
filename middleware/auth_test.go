package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/libreserve/backend/service"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func testClaims(id primitive.ObjectID, perms []string) *Claims {
	return &Claims{
		UserID:      id.Hex(),
		Email:       "ana@example.com",
		Role:        "member",
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestAuth(t *testing.T) {
	userID := primitive.NewObjectID()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, userID, actor.ID)
		assert.Equal(t, []string{"list_books"}, actor.Permissions)
		w.WriteHeader(http.StatusOK)
	})
	handler := Auth(testSecret)(okHandler)

	t.Run("valid token populates actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, testClaims(userID, []string{"list_books"})))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, testClaims(userID, nil))
		s, err := token.SignedString([]byte("other-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+s)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := testClaims(userID, nil)
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, claims))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequirePermission(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequirePermission("reserve_books")(next)

	serve := func(actor *service.Actor) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if actor != nil {
			req = req.WithContext(withActor(req.Context(), *actor))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("held permission allows", func(t *testing.T) {
		rec := serve(&service.Actor{ID: primitive.NewObjectID(), Permissions: []string{"reserve_books"}})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing permission denies", func(t *testing.T) {
		rec := serve(&service.Actor{ID: primitive.NewObjectID(), Permissions: []string{"list_books"}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("empty permission set denies", func(t *testing.T) {
		rec := serve(&service.Actor{ID: primitive.NewObjectID()})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no identity denies", func(t *testing.T) {
		rec := serve(nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAnyPermission(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAnyPermission("modify_books", "create_books")(next)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(withActor(req.Context(), service.Actor{
		ID:          primitive.NewObjectID(),
		Permissions: []string{"create_books"},
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(withActor(req.Context(), service.Actor{
		ID:          primitive.NewObjectID(),
		Permissions: []string{"list_books"},
	}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
