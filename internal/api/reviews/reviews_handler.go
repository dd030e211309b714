package reviews

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/ssongk/daytrip/app/observability/metrics"
	"github.com/ssongk/daytrip/internal/api"
)

type HandlerImpl struct {
	service Service
	logger  *slog.Logger
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
	}
}

// SubmitReviewRequest is the JSON body for submitting one place review.
type SubmitReviewRequest struct {
	PlaceID string  `json:"place_id"`
	Author  string  `json:"author"`
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment,omitempty"`
}

func (h *HandlerImpl) SubmitReview(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ReviewsHandler").Start(r.Context(), "SubmitReview", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/reviews"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SubmitReview"))

	var body SubmitReviewRequest
	if err := api.DecodeJSONBody(w, r, &body); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	placeID, err := uuid.Parse(body.PlaceID)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Field 'place_id' must be a UUID")
		return
	}
	if body.Rating < 0 || body.Rating > 5 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Field 'rating' must be between 0 and 5")
		return
	}

	result, err := h.service.IngestReview(ctx, Review{
		PlaceID: placeID,
		Author:  body.Author,
		Rating:  body.Rating,
		Comment: body.Comment,
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to ingest review", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to ingest review")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	m := metrics.Get()
	m.ReviewsIngestedTotal.Add(ctx, 1)
	if result.Reindexed {
		m.ReviewReindexRunsTotal.Add(ctx, 1)
	}

	span.SetStatus(codes.Ok, "Review ingested")
	api.WriteJSONResponse(w, r, http.StatusCreated, result)
}
