package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssongk/daytrip/internal/planner"
	"github.com/ssongk/daytrip/internal/region"
	"github.com/ssongk/daytrip/internal/types"
)

var haeundae = types.Coordinate{Latitude: 35.1587, Longitude: 129.1604}

// fixedLookup serves rating-ranked pools keyed by the leading query term.
type fixedLookup struct {
	mu    sync.Mutex
	pools map[string][]types.Place
}

func newFixedLookup() *fixedLookup {
	pool := func(category string, count int, baseOffset float64) []types.Place {
		places := make([]types.Place, count)
		for i := range places {
			places[i] = types.Place{
				ID:       uuid.New(),
				Name:     fmt.Sprintf("%s-%d", category, i+1),
				Category: category,
				Coordinate: types.Coordinate{
					Latitude:  haeundae.Latitude + baseOffset + float64(i)*0.003,
					Longitude: haeundae.Longitude,
				},
				Rating: 4.9 - float64(i)*0.1,
			}
		}
		return places
	}
	return &fixedLookup{
		pools: map[string][]types.Place{
			"restaurant": pool("restaurant", 8, 0.001),
			"cafe":       pool("cafe", 6, 0.002),
			"attraction": pool("attraction", 8, 0.004),
		},
	}
}

func (f *fixedLookup) Search(ctx context.Context, query, regionFilter string, anchor types.Coordinate, limit int) ([]types.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pool := f.pools[strings.Fields(query)[0]]
	if len(pool) > limit {
		pool = pool[:limit]
	}
	out := make([]types.Place, len(pool))
	copy(out, pool)
	return out, nil
}

func newTestService() *ServiceImpl {
	return NewItineraryService(newFixedLookup(), region.RuleNormalizer{}, Config{
		MaxConcurrentSearches: 5,
		SearchCallTimeout:     time.Second,
		CandidateLimit:        10,
	}, slog.Default())
}

func tripRequest() types.TripRequest {
	return types.TripRequest{
		Destination: "Busan Haeundae-gu",
		Centroid:    haeundae,
		Days:        3,
		PartySize:   2,
		TravelMode:  types.TravelModeWalking,
		StartDate:   time.Date(2026, time.September, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateTrip(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	session, err := service.CreateTrip(ctx, tripRequest())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Equal(t, planner.StateTimelineComputed, session.State)
	assert.False(t, session.ReadyForExport)
	require.Len(t, session.Itinerary.Days, 3)
	assert.Len(t, session.Itinerary.Days[0], 4)
	assert.Len(t, session.Itinerary.Days[1], 5)
	assert.Len(t, session.Itinerary.Days[2], 1)

	t.Run("RegionResolvedFromDestination", func(t *testing.T) {
		assert.Equal(t, "Haeundae-gu", session.Region)
	})

	t.Run("ExplicitRegionKept", func(t *testing.T) {
		req := tripRequest()
		req.Region = "Suyeong-gu"
		got, err := service.CreateTrip(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "Suyeong-gu", got.Region)
	})

	t.Run("InvalidDayCount", func(t *testing.T) {
		req := tripRequest()
		req.Days = 0
		_, err := service.CreateTrip(ctx, req)
		assert.ErrorIs(t, err, types.ErrInvalidTripLength)
	})
}

func TestGetItinerary(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	session, err := service.CreateTrip(ctx, tripRequest())
	require.NoError(t, err)

	got, err := service.GetItinerary(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.Itinerary, got.Itinerary)

	t.Run("UnknownSession", func(t *testing.T) {
		_, err := service.GetItinerary(ctx, uuid.New())
		assert.ErrorIs(t, err, types.ErrSessionNotFound)
	})
}

func TestEditSlotThroughService(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	session, err := service.CreateTrip(ctx, tripRequest())
	require.NoError(t, err)
	oldID := session.Itinerary.Days[1][1].Place.ID.String()

	got, err := service.ReplaceSlot(ctx, session.ID, types.SlotRef{Day: 2, Position: 1})
	require.NoError(t, err)
	assert.Equal(t, planner.StateEditing, got.State)
	assert.NotContains(t, got.Itinerary.UsedPlaceIDs(), oldID)
	assert.Equal(t, session.Itinerary.Days[0], got.Itinerary.Days[0])

	t.Run("DeleteRefills", func(t *testing.T) {
		got, err := service.DeleteSlot(ctx, session.ID, types.SlotRef{Day: 1, Position: 0})
		require.NoError(t, err)
		for _, day := range got.Itinerary.Days {
			for _, slot := range day {
				assert.NotNil(t, slot.Place)
			}
		}
	})

	t.Run("UnknownSlot", func(t *testing.T) {
		_, err := service.DeleteSlot(ctx, session.ID, types.SlotRef{Day: 9, Position: 0})
		assert.ErrorIs(t, err, types.ErrSlotNotFound)
	})
}

func TestConfirmItinerary(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	session, err := service.CreateTrip(ctx, tripRequest())
	require.NoError(t, err)

	confirmed, err := service.ConfirmItinerary(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, planner.StateConfirmed, confirmed.State)
	assert.True(t, confirmed.ReadyForExport)

	t.Run("EditAfterConfirmRejected", func(t *testing.T) {
		_, err := service.ReplaceSlot(ctx, session.ID, types.SlotRef{Day: 1, Position: 0})
		assert.ErrorIs(t, err, types.ErrIllegalStateTransition)
	})

	t.Run("UnknownSession", func(t *testing.T) {
		_, err := service.ConfirmItinerary(ctx, uuid.New())
		assert.ErrorIs(t, err, types.ErrSessionNotFound)
	})
}
