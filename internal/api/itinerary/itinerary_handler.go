package itinerary

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/ssongk/daytrip/app/observability/metrics"
	"github.com/ssongk/daytrip/internal/api"
	"github.com/ssongk/daytrip/internal/types"
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

// CreateTripRequest is the JSON body for opening a planning session.
type CreateTripRequest struct {
	Destination string           `json:"destination"`
	Region      string           `json:"region,omitempty"`
	Centroid    types.Coordinate `json:"centroid"`
	Days        int              `json:"days"`
	PartySize   int              `json:"party_size"`
	Preferences []string         `json:"preferences,omitempty"`
	TravelMode  types.TravelMode `json:"travel_mode,omitempty"`
	StartDate   string           `json:"start_date"` // YYYY-MM-DD
}

func (h *HandlerImpl) CreateTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "CreateTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CreateTrip"))

	var body CreateTripRequest
	if err := api.DecodeJSONBody(w, r, &body); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if body.Destination == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Field 'destination' is required")
		return
	}

	startDate := time.Now()
	if body.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", body.StartDate)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Field 'start_date' must be YYYY-MM-DD")
			return
		}
		startDate = parsed
	}
	mode := body.TravelMode
	if mode == "" {
		mode = types.TravelModeWalking
	}

	started := time.Now()
	session, err := h.service.CreateTrip(ctx, types.TripRequest{
		Destination: body.Destination,
		Region:      body.Region,
		Centroid:    body.Centroid,
		Days:        body.Days,
		PartySize:   body.PartySize,
		Preferences: body.Preferences,
		TravelMode:  mode,
		StartDate:   startDate,
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to create trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create trip")
		writeServiceError(w, r, err)
		return
	}

	m := metrics.Get()
	m.TripGenerationsTotal.Add(ctx, 1)
	m.TripGenerationDurationSeconds.Record(ctx, time.Since(started).Seconds())

	span.SetStatus(codes.Ok, "Trip created")
	api.WriteJSONResponse(w, r, http.StatusCreated, session)
}

func (h *HandlerImpl) GetItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "GetItinerary", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{sessionID}"),
	))
	defer span.End()

	sessionID, ok := h.sessionID(w, r)
	if !ok {
		span.SetStatus(codes.Error, "Invalid session ID")
		return
	}

	session, err := h.service.GetItinerary(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		writeServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, session)
}

func (h *HandlerImpl) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "DeleteSlot", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{sessionID}/days/{day}/slots/{position}"),
	))
	defer span.End()

	sessionID, ok := h.sessionID(w, r)
	if !ok {
		span.SetStatus(codes.Error, "Invalid session ID")
		return
	}
	ref, ok := h.slotRef(w, r)
	if !ok {
		span.SetStatus(codes.Error, "Invalid slot reference")
		return
	}

	session, err := h.service.DeleteSlot(ctx, sessionID, ref)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to delete slot", slog.Any("error", err))
		span.RecordError(err)
		writeServiceError(w, r, err)
		return
	}
	metrics.Get().SlotEditsTotal.Add(ctx, 1)
	api.WriteJSONResponse(w, r, http.StatusOK, session)
}

func (h *HandlerImpl) ReplaceSlot(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "ReplaceSlot", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{sessionID}/days/{day}/slots/{position}"),
	))
	defer span.End()

	sessionID, ok := h.sessionID(w, r)
	if !ok {
		span.SetStatus(codes.Error, "Invalid session ID")
		return
	}
	ref, ok := h.slotRef(w, r)
	if !ok {
		span.SetStatus(codes.Error, "Invalid slot reference")
		return
	}

	session, err := h.service.ReplaceSlot(ctx, sessionID, ref)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to replace slot", slog.Any("error", err))
		span.RecordError(err)
		writeServiceError(w, r, err)
		return
	}
	metrics.Get().SlotEditsTotal.Add(ctx, 1)
	api.WriteJSONResponse(w, r, http.StatusOK, session)
}

func (h *HandlerImpl) ConfirmItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "ConfirmItinerary", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{sessionID}/confirm"),
	))
	defer span.End()

	sessionID, ok := h.sessionID(w, r)
	if !ok {
		span.SetStatus(codes.Error, "Invalid session ID")
		return
	}

	session, err := h.service.ConfirmItinerary(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		writeServiceError(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "Itinerary confirmed")
	api.WriteJSONResponse(w, r, http.StatusOK, session)
}

func (h *HandlerImpl) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid session ID format in URL")
		return uuid.Nil, false
	}
	return sessionID, true
}

func (h *HandlerImpl) slotRef(w http.ResponseWriter, r *http.Request) (types.SlotRef, bool) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid day in URL")
		return types.SlotRef{}, false
	}
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid slot position in URL")
		return types.SlotRef{}, false
	}
	return types.SlotRef{Day: day, Position: position}, true
}

// writeServiceError maps the planner error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrSessionNotFound), errors.Is(err, types.ErrSlotNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrIllegalStateTransition):
		api.ErrorResponse(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrInvalidTripLength), errors.Is(err, types.ErrInvalidOrdering):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNoPlaceAvailable):
		api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
