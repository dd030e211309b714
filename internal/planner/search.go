package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ssongk/daytrip/internal/types"
)

// PlaceLookup is the read contract with the place-data provider and
// knowledge store. Implementations must tolerate concurrent calls.
type PlaceLookup interface {
	Search(ctx context.Context, query, regionFilter string, anchor types.Coordinate, limit int) ([]types.Place, error)
}

// SearchStrategy implements the two-stage slot-filling policy:
// a preference-aware query first, then a preference-stripped query sorted
// by distance to the anchor. The strategy is stateless across calls.
type SearchStrategy struct {
	lookup         PlaceLookup
	logger         *slog.Logger
	callTimeout    time.Duration
	candidateLimit int
}

func NewSearchStrategy(lookup PlaceLookup, callTimeout time.Duration, candidateLimit int, logger *slog.Logger) *SearchStrategy {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	if candidateLimit <= 0 {
		candidateLimit = 5
	}
	return &SearchStrategy{
		lookup:         lookup,
		logger:         logger,
		callTimeout:    callTimeout,
		candidateLimit: candidateLimit,
	}
}

// kindQuery maps a slot kind to the provider query term. Lunch and dinner
// slots share the restaurant vocabulary.
func kindQuery(kind types.SlotKind) string {
	switch kind {
	case types.SlotRestaurantLunch, types.SlotRestaurantDinner:
		return "restaurant"
	case types.SlotCafe:
		return "cafe"
	default:
		return "attraction"
	}
}

// SelectBestPlace resolves one slot. Stage 1 queries with the user's
// preference tags and picks the top-ranked candidate, breaking relevance
// ties by proximity to the anchor. Stage 2 (only on an empty stage-1
// result) re-queries without preferences and picks the nearest candidate.
// Provider errors and timeouts are treated as empty result sets; when both
// stages come up empty the error is ErrNoPlaceAvailable.
func (s *SearchStrategy) SelectBestPlace(ctx context.Context, spec types.SlotSpec, anchor types.Coordinate, region string, preferences []string, excluded map[string]struct{}) (types.Place, error) {
	ctx, span := otel.Tracer("SearchStrategy").Start(ctx, "SelectBestPlace")
	defer span.End()
	span.SetAttributes(
		attribute.Int("slot.day", spec.Day),
		attribute.String("slot.kind", string(spec.Kind)),
	)

	base := kindQuery(spec.Kind)

	// Stage 1: preference-aware.
	query := base
	if len(preferences) > 0 {
		query = base + " " + strings.Join(preferences, " ")
	}
	candidates := s.query(ctx, query, region, anchor)
	candidates = dropExcluded(candidates, excluded)
	if len(candidates) > 0 {
		return pickTopRanked(candidates, anchor), nil
	}

	// Stage 2: preferences stripped, nearest first.
	span.AddEvent("preference search empty, falling back to distance search")
	s.logger.DebugContext(ctx, "search fallback engaged",
		slog.Int("day", spec.Day), slog.String("kind", string(spec.Kind)))

	candidates = s.query(ctx, base, region, anchor)
	candidates = dropExcluded(candidates, excluded)
	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool {
			return HaversineMeters(anchor, candidates[i].Coordinate) < HaversineMeters(anchor, candidates[j].Coordinate)
		})
		return candidates[0], nil
	}

	return types.Place{}, fmt.Errorf("select place for day %d %s slot: %w", spec.Day, spec.Kind, types.ErrNoPlaceAvailable)
}

// query runs one bounded provider call. A failure is logged and treated as
// an empty result so the fallback path decides what happens next.
func (s *SearchStrategy) query(ctx context.Context, query, region string, anchor types.Coordinate) []types.Place {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	places, err := s.lookup.Search(callCtx, query, region, anchor, s.candidateLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "place lookup failed, treating as empty result",
			slog.String("query", query), slog.Any("error", err))
		return nil
	}
	return places
}

func dropExcluded(candidates []types.Place, excluded map[string]struct{}) []types.Place {
	kept := candidates[:0:0]
	for _, c := range candidates {
		if _, used := excluded[c.ID.String()]; !used {
			kept = append(kept, c)
		}
	}
	return kept
}

// pickTopRanked takes the provider's relevance ordering (rating descending)
// and breaks ties within the leading relevance band by anchor proximity.
func pickTopRanked(candidates []types.Place, anchor types.Coordinate) types.Place {
	best := candidates[0]
	bestDist := HaversineMeters(anchor, best.Coordinate)
	for _, c := range candidates[1:] {
		if c.Rating != best.Rating {
			break
		}
		if d := HaversineMeters(anchor, c.Coordinate); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}
