package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/ssongk/daytrip/internal/api"
	"github.com/ssongk/daytrip/internal/api/itinerary"
	"github.com/ssongk/daytrip/internal/api/reviews"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ItineraryHandler *itinerary.HandlerImpl
	ReviewsHandler   *reviews.HandlerImpl
	Version          string
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		api.WriteJSONResponse(w, req, http.StatusOK, api.HealthResponse{
			Status:    "ok",
			Version:   cfg.Version,
			Timestamp: time.Now().UTC(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/trips", func(r chi.Router) {
			r.Post("/", cfg.ItineraryHandler.CreateTrip)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", cfg.ItineraryHandler.GetItinerary)
				r.Post("/confirm", cfg.ItineraryHandler.ConfirmItinerary)
				r.Route("/days/{day}/slots/{position}", func(r chi.Router) {
					r.Delete("/", cfg.ItineraryHandler.DeleteSlot)
					r.Put("/", cfg.ItineraryHandler.ReplaceSlot)
				})
			})
		})

		r.Post("/reviews", cfg.ReviewsHandler.SubmitReview)
	})

	return r
}
