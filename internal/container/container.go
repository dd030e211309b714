package container

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/ssongk/daytrip/app/db"
	"github.com/ssongk/daytrip/config"
	"github.com/ssongk/daytrip/internal/api/itinerary"
	"github.com/ssongk/daytrip/internal/api/reviews"
	"github.com/ssongk/daytrip/internal/places"
	"github.com/ssongk/daytrip/internal/region"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Pool             *pgxpool.Pool
	ItineraryHandler *itinerary.HandlerImpl
	ReviewsHandler   *reviews.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	// Initialize database
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	// Knowledge store and the planner's place lookup
	placesRepo := places.NewPostgresRepository(pool, logger)
	placeClient := places.NewClient(placesRepo, cfg.Planner.PlaceCacheTTL, cfg.Planner.SearchMaxRetries, logger)

	// Destination region resolution: Gemini when a key is configured, rule
	// based normalization otherwise.
	var normalizer region.Normalizer = region.RuleNormalizer{}
	if apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY"); apiKey != "" {
		gemini, err := region.NewGeminiNormalizer(context.Background(), apiKey, cfg.Gemini.Model, logger)
		if err != nil {
			logger.Warn("Failed to initialize Gemini normalizer, using rule-based fallback", slog.Any("error", err))
		} else {
			normalizer = gemini
		}
	}

	itineraryService := itinerary.NewItineraryService(placeClient, normalizer, itinerary.Config{
		MaxConcurrentSearches: cfg.Planner.MaxConcurrentSearches,
		SearchCallTimeout:     cfg.Planner.SearchCallTimeout,
		CandidateLimit:        cfg.Planner.CandidateLimit,
		DayStart:              cfg.Planner.DayStart,
		DayOpeningStart:       cfg.Planner.DayStart,
	}, logger)
	itineraryHandler := itinerary.NewHandlerImpl(itineraryService, logger)

	reviewsRepo := reviews.NewPostgresRepository(pool, logger)
	reviewsService := reviews.NewReviewsService(reviewsRepo, cfg.Reviews.ReindexBatchSize, logger)
	reviewsHandler := reviews.NewHandlerImpl(reviewsService, logger)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Pool:             pool,
		ItineraryHandler: itineraryHandler,
		ReviewsHandler:   reviewsHandler,
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
