package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/libreserve/backend/config"
	"github.com/libreserve/backend/handlers"
	"github.com/libreserve/backend/logger"
	"github.com/libreserve/backend/middleware"
	"github.com/libreserve/backend/models"
	"github.com/libreserve/backend/service"
	"github.com/libreserve/backend/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", slog.Any("error", err))
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		logger.Fatal("mongodb", slog.Any("error", err))
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			logger.Error("mongodb disconnect", slog.Any("error", err))
		}
	}()

	usersSvc := service.NewUsers(db, service.SystemClock)
	reservationsSvc := service.NewReservations(db, db, db, service.SystemClock)

	if err := ensureAdmin(ctx, db, usersSvc, cfg); err != nil {
		logger.Fatal("admin seed", slog.Any("error", err))
	}

	authHandler := &handlers.AuthHandler{Users: usersSvc, JWTSecret: cfg.JWTSecret}
	usersHandler := &handlers.UsersHandler{Users: usersSvc}
	booksHandler := &handlers.BooksHandler{DB: db, Clock: service.SystemClock}
	reservationsHandler := &handlers.ReservationsHandler{Reservations: reservationsSvc}

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Catalog reads are public.
		r.Get("/books", booksHandler.List)
		r.Get("/books/{id}", booksHandler.Get)

		// Everything else requires a token; mutations are additionally
		// gated on the caller's materialized permission set.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.With(middleware.RequirePermission(models.PermCreateBooks)).
				Post("/books", booksHandler.Create)
			r.With(middleware.RequirePermission(models.PermModifyBooks)).
				Put("/books/{id}", booksHandler.Update)
			r.With(middleware.RequirePermission(models.PermDeactivateBooks)).
				Delete("/books/{id}", booksHandler.Deactivate)

			r.With(middleware.RequirePermission(models.PermReserveBooks)).
				Post("/reservations", reservationsHandler.Create)
			r.With(middleware.RequirePermission(models.PermViewOwnReservations)).
				Get("/reservations/user", reservationsHandler.ListMine)
			r.With(middleware.RequirePermission(models.PermViewBookReservations)).
				Get("/reservations/book/{bookId}", reservationsHandler.ListForBook)
			// Ownership-or-permission is resolved inside the service.
			r.Delete("/reservations/{id}", reservationsHandler.Return)

			r.Get("/users/{id}", usersHandler.Get)
			r.Put("/users/{id}", usersHandler.Update)
			r.With(middleware.RequirePermission(models.PermManagePermissions)).
				Put("/users/{id}/permissions", usersHandler.UpdateAccess)
			r.Delete("/users/{id}", usersHandler.Deactivate)
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("server listening", slog.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
}

// ensureAdmin seeds the initial admin account when none exists. Skipped when
// ADMIN_PASSWORD is unset.
func ensureAdmin(ctx context.Context, db *store.DB, users *service.Users, cfg *config.Config) error {
	if cfg.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD not set; skipping admin seed")
		return nil
	}
	exists, err := db.AdminExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	admin, err := users.Register(ctx, service.RegisterInput{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	logger.Info("admin account created", slog.String("user_id", admin.ID.Hex()), slog.String("email", admin.Email))
	return nil
}
