package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ssongk/daytrip/internal/planner"
	"github.com/ssongk/daytrip/internal/region"
	"github.com/ssongk/daytrip/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service manages planning sessions: one itinerary engine per trip request,
// addressed by session id.
type Service interface {
	// CreateTrip resolves the destination region, generates a full
	// itinerary and registers a new session for it.
	CreateTrip(ctx context.Context, req types.TripRequest) (*Session, error)
	GetItinerary(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	DeleteSlot(ctx context.Context, sessionID uuid.UUID, ref types.SlotRef) (*Session, error)
	ReplaceSlot(ctx context.Context, sessionID uuid.UUID, ref types.SlotRef) (*Session, error)
	// ConfirmItinerary finalizes the session; afterwards the itinerary is
	// immutable and ready for export.
	ConfirmItinerary(ctx context.Context, sessionID uuid.UUID) (*Session, error)
}

// Session is the external view of one planning session.
type Session struct {
	ID             uuid.UUID       `json:"id"`
	Destination    string          `json:"destination"`
	Region         string          `json:"region"`
	State          planner.State   `json:"state"`
	ReadyForExport bool            `json:"ready_for_export"`
	Itinerary      types.Itinerary `json:"itinerary"`
	CreatedAt      time.Time       `json:"created_at"`
}

type sessionEntry struct {
	id        uuid.UUID
	req       types.TripRequest
	engine    *planner.Engine
	createdAt time.Time
}

// Config carries the planner tunables the service wires into each engine.
type Config struct {
	MaxConcurrentSearches int
	SearchCallTimeout     time.Duration
	CandidateLimit        int
	DayOpeningStart       time.Duration
	DayStart              time.Duration
}

type ServiceImpl struct {
	logger     *slog.Logger
	normalizer region.Normalizer
	search     *planner.SearchStrategy
	timeline   *planner.TimelineCalculator
	orch       *planner.Orchestrator
	template   planner.SlotTemplateGenerator

	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry
}

// NewItineraryService creates a new session service instance.
func NewItineraryService(lookup planner.PlaceLookup, normalizer region.Normalizer, cfg Config, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		normalizer: normalizer,
		search:     planner.NewSearchStrategy(lookup, cfg.SearchCallTimeout, cfg.CandidateLimit, logger),
		timeline:   planner.NewTimelineCalculator(nil, nil, cfg.DayStart),
		orch:       planner.NewOrchestrator(cfg.MaxConcurrentSearches, logger),
		template:   planner.SlotTemplateGenerator{DayOpeningStart: cfg.DayOpeningStart},
		sessions:   make(map[uuid.UUID]*sessionEntry),
	}
}

func (s *ServiceImpl) CreateTrip(ctx context.Context, req types.TripRequest) (*Session, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "CreateTrip", trace.WithAttributes(
		attribute.String("trip.destination", req.Destination),
		attribute.Int("trip.days", req.Days),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateTrip"), slog.String("destination", req.Destination))

	if req.Region == "" {
		resolved, err := s.normalizer.Normalize(ctx, req.Destination)
		if err != nil {
			l.ErrorContext(ctx, "Failed to resolve destination region", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to resolve destination region")
			return nil, fmt.Errorf("error resolving region for %q: %w", req.Destination, err)
		}
		req.Region = resolved
	}
	span.SetAttributes(attribute.String("trip.region", req.Region))
	l = l.With(slog.String("region", req.Region))

	engine, err := planner.NewEngine(req, s.template, s.search, s.timeline, s.orch, s.logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid trip request")
		return nil, fmt.Errorf("error creating planning session: %w", err)
	}
	if err := engine.Generate(ctx); err != nil {
		l.ErrorContext(ctx, "Failed to generate itinerary", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate itinerary")
		return nil, fmt.Errorf("error generating itinerary: %w", err)
	}

	entry := &sessionEntry{
		id:        uuid.New(),
		req:       req,
		engine:    engine,
		createdAt: time.Now(),
	}
	s.mu.Lock()
	s.sessions[entry.id] = entry
	s.mu.Unlock()

	l.InfoContext(ctx, "Planning session created", slog.String("sessionID", entry.id.String()))
	span.SetStatus(codes.Ok, "Planning session created")
	return entry.view(), nil
}

func (s *ServiceImpl) GetItinerary(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	_, span := otel.Tracer("ItineraryService").Start(ctx, "GetItinerary", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()

	entry, err := s.lookup(sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "Session not found")
		return nil, err
	}
	return entry.view(), nil
}

func (s *ServiceImpl) DeleteSlot(ctx context.Context, sessionID uuid.UUID, ref types.SlotRef) (*Session, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "DeleteSlot", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
		attribute.Int("slot.day", ref.Day),
		attribute.Int("slot.position", ref.Position),
	))
	defer span.End()

	entry, err := s.lookup(sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "Session not found")
		return nil, err
	}
	if err := entry.engine.DeleteSlot(ctx, ref); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete slot")
		return nil, fmt.Errorf("error deleting slot: %w", err)
	}
	s.logger.InfoContext(ctx, "Slot deleted and refilled",
		slog.String("sessionID", sessionID.String()), slog.Int("day", ref.Day), slog.Int("position", ref.Position))
	return entry.view(), nil
}

func (s *ServiceImpl) ReplaceSlot(ctx context.Context, sessionID uuid.UUID, ref types.SlotRef) (*Session, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "ReplaceSlot", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
		attribute.Int("slot.day", ref.Day),
		attribute.Int("slot.position", ref.Position),
	))
	defer span.End()

	entry, err := s.lookup(sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "Session not found")
		return nil, err
	}
	if err := entry.engine.ReplaceSlot(ctx, ref); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to replace slot")
		return nil, fmt.Errorf("error replacing slot: %w", err)
	}
	return entry.view(), nil
}

func (s *ServiceImpl) ConfirmItinerary(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "ConfirmItinerary", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()

	entry, err := s.lookup(sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "Session not found")
		return nil, err
	}
	if err := entry.engine.Confirm(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to confirm itinerary")
		return nil, fmt.Errorf("error confirming itinerary: %w", err)
	}
	s.logger.InfoContext(ctx, "Itinerary confirmed", slog.String("sessionID", sessionID.String()))
	span.SetStatus(codes.Ok, "Itinerary confirmed")
	return entry.view(), nil
}

func (s *ServiceImpl) lookup(sessionID uuid.UUID) (*sessionEntry, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, types.ErrSessionNotFound)
	}
	return entry, nil
}

func (e *sessionEntry) view() *Session {
	snap := e.engine.Snapshot()
	return &Session{
		ID:             e.id,
		Destination:    e.req.Destination,
		Region:         e.req.Region,
		State:          snap.State,
		ReadyForExport: snap.State == planner.StateConfirmed,
		Itinerary:      snap.Itinerary,
		CreatedAt:      e.createdAt,
	}
}
