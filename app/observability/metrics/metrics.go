package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	TripGenerationsTotal          metric.Int64Counter
	TripGenerationDurationSeconds metric.Float64Histogram
	SlotEditsTotal                metric.Int64Counter
	ReviewsIngestedTotal          metric.Int64Counter
	ReviewReindexRunsTotal        metric.Int64Counter
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("daytrip")
		var err error
		m := &AppMetrics{}

		m.TripGenerationsTotal, err = meter.Int64Counter(
			"trip_generations_total",
			metric.WithDescription("Total number of trip generation requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create trip_generations_total: %v", err)
		}

		m.TripGenerationDurationSeconds, err = meter.Float64Histogram(
			"trip_generation_duration_seconds",
			metric.WithDescription("Duration of full itinerary generation in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create trip_generation_duration_seconds: %v", err)
		}

		m.SlotEditsTotal, err = meter.Int64Counter(
			"slot_edits_total",
			metric.WithDescription("Total number of slot delete/replace edits"),
			metric.WithUnit("{edit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create slot_edits_total: %v", err)
		}

		m.ReviewsIngestedTotal, err = meter.Int64Counter(
			"reviews_ingested_total",
			metric.WithDescription("Total number of place reviews ingested"),
			metric.WithUnit("{review}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create reviews_ingested_total: %v", err)
		}

		m.ReviewReindexRunsTotal, err = meter.Int64Counter(
			"review_reindex_runs_total",
			metric.WithDescription("Total number of review batch reindex runs"),
			metric.WithUnit("{run}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create review_reindex_runs_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		// This indicates a programming error - InitAppMetrics must be called at startup.
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
