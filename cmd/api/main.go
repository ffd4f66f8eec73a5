package main

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/fkhayef/huddle/docs"
	"github.com/fkhayef/huddle/internal/auth"
	"github.com/fkhayef/huddle/internal/config"
	"github.com/fkhayef/huddle/internal/database"
	"github.com/fkhayef/huddle/internal/group"
	"github.com/fkhayef/huddle/internal/user"
	mw "github.com/fkhayef/huddle/pkg/middleware"
)

// @title           Huddle API
// @version         1.0
// @description     Capacity-bounded group membership: discovery, moderated admission and invite codes.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Info().Msg("Connected to database, schema up to date")

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	// Auth feature
	authService := auth.NewService(userService, []byte(cfg.JWTSecret), cfg.TokenTTL)
	authHandler := auth.NewHandler(authService)

	// Group feature (admission engine)
	groupRepo := group.NewRepository(db)
	groupService := group.NewService(db, groupRepo, userRepo)
	groupHandler := group.NewHandler(groupService)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(mw.RequestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/swagger/*", httpSwagger.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(mw.Auth([]byte(cfg.JWTSecret)))
			r.Mount("/users", userHandler.Routes())
			r.Mount("/groups", groupHandler.Routes())
			r.Mount("/join-requests", groupHandler.RequestRoutes())
		})
	})

	logger.Info().Str("port", cfg.Port).Msg("Server starting")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
}
