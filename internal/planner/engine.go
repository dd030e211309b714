package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ssongk/daytrip/internal/types"
)

// State of one planning session.
type State string

const (
	StatePlanning         State = "planning"
	StateGenerating       State = "generating"
	StateTimelineComputed State = "timeline-computed"
	StateEditing          State = "editing"
	StateConfirmed        State = "confirmed"
)

// Snapshot is the read-only view handed to the presentation side.
type Snapshot struct {
	State     State           `json:"state"`
	Itinerary types.Itinerary `json:"itinerary"`
}

// Engine owns the itinerary of one planning session and drives generation
// and the edit loop. All mutation goes through the state machine
// Planning → Generating → TimelineComputed → Editing… → Confirmed; a
// failed operation never leaves a partially overwritten itinerary.
type Engine struct {
	mu        sync.Mutex
	state     State
	req       types.TripRequest
	template  [][]types.SlotSpec
	itinerary types.Itinerary

	search   *SearchStrategy
	timeline *TimelineCalculator
	orch     *Orchestrator
	logger   *slog.Logger
}

func NewEngine(req types.TripRequest, tmpl SlotTemplateGenerator, search *SearchStrategy, timeline *TimelineCalculator, orch *Orchestrator, logger *slog.Logger) (*Engine, error) {
	template, err := tmpl.Generate(req.Days)
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	return &Engine{
		state:    StatePlanning,
		req:      req,
		template: template,
		search:   search,
		timeline: timeline,
		orch:     orch,
		logger:   logger,
	}, nil
}

// Generate fills every slot of the template, one wave per day. Waves are
// strictly sequential across days because day N+1's anchor is day N's last
// optimized place; within a day, slot searches run concurrently.
func (e *Engine) Generate(ctx context.Context) error {
	ctx, span := otel.Tracer("ItineraryEngine").Start(ctx, "Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("trip.region", e.req.Region),
		attribute.Int("trip.days", e.req.Days),
	)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlanning {
		return fmt.Errorf("generate in state %q: %w", e.state, types.ErrIllegalStateTransition)
	}
	e.state = StateGenerating

	it := types.Itinerary{Days: make([][]types.ItinerarySlot, e.req.Days)}
	used := map[string]struct{}{}

	for day := 1; day <= e.req.Days; day++ {
		anchor := dayAnchor(it, day, e.req.Centroid)
		specs := e.template[day-1]

		places, err := e.runDayWave(ctx, specs, anchor, used)
		if err != nil {
			e.state = StatePlanning
			span.RecordError(err)
			span.SetStatus(codes.Error, "wave failed")
			return fmt.Errorf("generate itinerary day %d: %w", day, err)
		}

		slots := make([]types.ItinerarySlot, len(specs))
		for i := range specs {
			p := places[i]
			slots[i] = types.ItinerarySlot{Spec: specs[i], Place: &p}
		}
		slots = orderDay(slots, anchor)

		date := e.req.StartDate.AddDate(0, 0, day-1)
		slots, err = e.timeline.ComputeDay(slots, date, e.req.TravelMode)
		if err != nil {
			e.state = StatePlanning
			span.RecordError(err)
			return fmt.Errorf("generate itinerary day %d: %w", day, err)
		}
		it.Days[day-1] = slots

		for _, s := range slots {
			used[s.Place.ID.String()] = struct{}{}
		}
	}

	e.itinerary = it
	e.state = StateTimelineComputed
	e.logger.InfoContext(ctx, "itinerary generated",
		slog.Int("days", e.req.Days), slog.Int("places", len(used)))
	span.SetStatus(codes.Ok, "itinerary generated")
	return nil
}

// runDayWave runs one day's searches concurrently against a read-only
// snapshot of the excluded-id set. Because sibling searches share that
// snapshot, two slots of the same kind can race to the same place; the
// later slot (by template position) is then re-searched serially with the
// winner excluded, which preserves the no-duplicate-visit invariant.
func (e *Engine) runDayWave(ctx context.Context, specs []types.SlotSpec, anchor types.Coordinate, used map[string]struct{}) ([]types.Place, error) {
	excluded := make(map[string]struct{}, len(used))
	for id := range used {
		excluded[id] = struct{}{}
	}

	tasks := make([]SearchTask, len(specs))
	for i, spec := range specs {
		tasks[i] = SearchTask{
			Spec: spec,
			Run: func(taskCtx context.Context) (types.Place, error) {
				return e.search.SelectBestPlace(taskCtx, spec, anchor, e.req.Region, e.req.Preferences, excluded)
			},
		}
	}

	places, err := e.orch.RunWave(ctx, tasks)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(places))
	for i, p := range places {
		if _, dup := seen[p.ID.String()]; !dup {
			seen[p.ID.String()] = struct{}{}
			continue
		}
		retryExcluded := make(map[string]struct{}, len(excluded)+len(seen))
		for id := range excluded {
			retryExcluded[id] = struct{}{}
		}
		for id := range seen {
			retryExcluded[id] = struct{}{}
		}
		replacement, err := e.search.SelectBestPlace(ctx, specs[i], anchor, e.req.Region, e.req.Preferences, retryExcluded)
		if err != nil {
			return nil, fmt.Errorf("resolve duplicate within wave: %w", err)
		}
		places[i] = replacement
		seen[replacement.ID.String()] = struct{}{}
	}
	return places, nil
}

// DeleteSlot empties the referenced slot, refills it from the knowledge
// store with every currently used place excluded, and recomputes routing
// and timing for that day and all later days. Days before the edited one
// are never touched.
func (e *Engine) DeleteSlot(ctx context.Context, ref types.SlotRef) error {
	ctx, span := otel.Tracer("ItineraryEngine").Start(ctx, "DeleteSlot")
	defer span.End()
	span.SetAttributes(
		attribute.Int("slot.day", ref.Day),
		attribute.Int("slot.position", ref.Position),
	)
	return e.refillSlot(ctx, ref)
}

// ReplaceSlot is delete followed by re-search: the same cascade.
func (e *Engine) ReplaceSlot(ctx context.Context, ref types.SlotRef) error {
	ctx, span := otel.Tracer("ItineraryEngine").Start(ctx, "ReplaceSlot")
	defer span.End()
	span.SetAttributes(
		attribute.Int("slot.day", ref.Day),
		attribute.Int("slot.position", ref.Position),
	)
	return e.refillSlot(ctx, ref)
}

func (e *Engine) refillSlot(ctx context.Context, ref types.SlotRef) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateTimelineComputed && e.state != StateEditing {
		return fmt.Errorf("edit in state %q: %w", e.state, types.ErrIllegalStateTransition)
	}
	if ref.Day < 1 || ref.Day > len(e.itinerary.Days) ||
		ref.Position < 0 || ref.Position >= len(e.itinerary.Days[ref.Day-1]) {
		return fmt.Errorf("edit day %d position %d: %w", ref.Day, ref.Position, types.ErrSlotNotFound)
	}

	// Stage every change on a copy; the live itinerary stays at its last
	// known-good state until the whole cascade succeeds.
	work := e.itinerary.Clone()
	slot := &work.Days[ref.Day-1][ref.Position]
	oldID := ""
	if slot.Place != nil {
		oldID = slot.Place.ID.String()
	}
	slot.Place = nil

	// The vacated place stays excluded so an edit never hands back the
	// place the user just removed.
	excluded := work.UsedPlaceIDs()
	if oldID != "" {
		excluded[oldID] = struct{}{}
	}
	anchor := dayAnchor(work, ref.Day, e.req.Centroid)

	place, err := e.search.SelectBestPlace(ctx, slot.Spec, anchor, e.req.Region, e.req.Preferences, excluded)
	if err != nil {
		e.logger.WarnContext(ctx, "slot refill failed, itinerary unchanged",
			slog.Int("day", ref.Day), slog.Int("position", ref.Position), slog.Any("error", err))
		return fmt.Errorf("refill day %d position %d: %w", ref.Day, ref.Position, err)
	}
	slot.Place = &place

	// The edit invalidates routing and timing from this day forward:
	// later days' anchors may shift, earlier days are unaffected.
	for day := ref.Day; day <= len(work.Days); day++ {
		dayAnchorPt := dayAnchor(work, day, e.req.Centroid)
		slots := orderDay(work.Days[day-1], dayAnchorPt)
		date := e.req.StartDate.AddDate(0, 0, day-1)
		slots, err := e.timeline.ComputeDay(slots, date, e.req.TravelMode)
		if err != nil {
			return fmt.Errorf("recompute day %d after edit: %w", day, err)
		}
		work.Days[day-1] = slots
	}

	e.itinerary = work
	e.state = StateEditing
	e.logger.InfoContext(ctx, "slot refilled",
		slog.Int("day", ref.Day), slog.Int("position", ref.Position),
		slog.String("place", place.Name))
	return nil
}

// Confirm finalizes the itinerary. No further mutation is accepted.
func (e *Engine) Confirm() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateTimelineComputed && e.state != StateEditing {
		return fmt.Errorf("confirm in state %q: %w", e.state, types.ErrIllegalStateTransition)
	}
	e.state = StateConfirmed
	return nil
}

// Snapshot returns the session state and a deep copy of the itinerary.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{State: e.state, Itinerary: e.itinerary.Clone()}
}

// dayAnchor is the nearest-neighbor origin for a day: the previous day's
// last optimized place, or the destination centroid when there is none.
func dayAnchor(it types.Itinerary, day int, centroid types.Coordinate) types.Coordinate {
	if day > 1 {
		if p := it.LastPlaceOfDay(day - 1); p != nil {
			return p.Coordinate
		}
	}
	return centroid
}
