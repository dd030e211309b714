package planner

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ssongk/daytrip/internal/types"
)

// MockPlaceLookup is a mock implementation of the PlaceLookup interface
type MockPlaceLookup struct {
	mock.Mock
}

func (m *MockPlaceLookup) Search(ctx context.Context, query, regionFilter string, anchor types.Coordinate, limit int) ([]types.Place, error) {
	args := m.Called(ctx, query, regionFilter, anchor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func ratedPlaceAt(name string, rating, latOffset float64) types.Place {
	p := placeAt(name, latOffset)
	p.Rating = rating
	return p
}

func TestSelectBestPlace(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	region := "Haeundae-gu"
	lunchSpec := types.SlotSpec{Day: 1, Kind: types.SlotRestaurantLunch, Position: 0}
	cafeSpec := types.SlotSpec{Day: 1, Kind: types.SlotCafe, Position: 1}
	noExclusions := map[string]struct{}{}

	t.Run("PreferenceQueryPicksTopRanked", func(t *testing.T) {
		mockLookup := new(MockPlaceLookup)
		strategy := NewSearchStrategy(mockLookup, time.Second, 5, logger)

		candidates := []types.Place{
			ratedPlaceAt("top", 4.8, 0.02),
			ratedPlaceAt("runner-up", 4.5, 0.01),
		}
		mockLookup.On("Search", mock.Anything, "restaurant korean seafood", region, testAnchor, 5).
			Return(candidates, nil).Once()

		place, err := strategy.SelectBestPlace(ctx, lunchSpec, testAnchor, region, []string{"korean", "seafood"}, noExclusions)
		require.NoError(t, err)
		assert.Equal(t, "top", place.Name)
		mockLookup.AssertExpectations(t)
	})

	t.Run("RatingTieBrokenByProximity", func(t *testing.T) {
		mockLookup := new(MockPlaceLookup)
		strategy := NewSearchStrategy(mockLookup, time.Second, 5, logger)

		candidates := []types.Place{
			ratedPlaceAt("far", 4.8, 0.03),
			ratedPlaceAt("close", 4.8, 0.005),
			ratedPlaceAt("lower", 4.6, 0.001),
		}
		mockLookup.On("Search", mock.Anything, "cafe", region, testAnchor, 5).
			Return(candidates, nil).Once()

		place, err := strategy.SelectBestPlace(ctx, cafeSpec, testAnchor, region, nil, noExclusions)
		require.NoError(t, err)
		assert.Equal(t, "close", place.Name)
		mockLookup.AssertExpectations(t)
	})

	t.Run("FallbackPicksNearest", func(t *testing.T) {
		mockLookup := new(MockPlaceLookup)
		strategy := NewSearchStrategy(mockLookup, time.Second, 5, logger)

		// Preference-aware query finds nothing; the fallback returns cafes at
		// roughly 1.2, 0.4 and 2.0 km and the nearest must win regardless of rating.
		mockLookup.On("Search", mock.Anything, "cafe quiet", region, testAnchor, 5).
			Return([]types.Place{}, nil).Once()
		mockLookup.On("Search", mock.Anything, "cafe", region, testAnchor, 5).
			Return([]types.Place{
				ratedPlaceAt("mid", 4.9, 0.0108),
				ratedPlaceAt("nearest", 4.1, 0.0036),
				ratedPlaceAt("farthest", 4.8, 0.018),
			}, nil).Once()

		place, err := strategy.SelectBestPlace(ctx, cafeSpec, testAnchor, region, []string{"quiet"}, noExclusions)
		require.NoError(t, err)
		assert.Equal(t, "nearest", place.Name)
		mockLookup.AssertExpectations(t)
	})

	t.Run("ExcludedPlacesSkipped", func(t *testing.T) {
		mockLookup := new(MockPlaceLookup)
		strategy := NewSearchStrategy(mockLookup, time.Second, 5, logger)

		used := ratedPlaceAt("already-visited", 4.9, 0.001)
		next := ratedPlaceAt("fresh", 4.7, 0.002)
		mockLookup.On("Search", mock.Anything, "restaurant", region, testAnchor, 5).
			Return([]types.Place{used, next}, nil).Once()

		place, err := strategy.SelectBestPlace(ctx, lunchSpec, testAnchor, region, nil,
			map[string]struct{}{used.ID.String(): {}})
		require.NoError(t, err)
		assert.Equal(t, "fresh", place.Name)
		mockLookup.AssertExpectations(t)
	})

	t.Run("ProviderErrorFallsThroughToFallback", func(t *testing.T) {
		mockLookup := new(MockPlaceLookup)
		strategy := NewSearchStrategy(mockLookup, time.Second, 5, logger)

		mockLookup.On("Search", mock.Anything, "cafe quiet", region, testAnchor, 5).
			Return(nil, errors.New("connection refused")).Once()
		mockLookup.On("Search", mock.Anything, "cafe", region, testAnchor, 5).
			Return([]types.Place{ratedPlaceAt("fallback", 4.0, 0.01)}, nil).Once()

		place, err := strategy.SelectBestPlace(ctx, cafeSpec, testAnchor, region, []string{"quiet"}, noExclusions)
		require.NoError(t, err)
		assert.Equal(t, "fallback", place.Name)
		mockLookup.AssertExpectations(t)
	})

	t.Run("BothStagesEmpty", func(t *testing.T) {
		mockLookup := new(MockPlaceLookup)
		strategy := NewSearchStrategy(mockLookup, time.Second, 5, logger)

		mockLookup.On("Search", mock.Anything, mock.Anything, region, testAnchor, 5).
			Return([]types.Place{}, nil).Twice()

		_, err := strategy.SelectBestPlace(ctx, lunchSpec, testAnchor, region, nil, noExclusions)
		assert.ErrorIs(t, err, types.ErrNoPlaceAvailable)
		mockLookup.AssertExpectations(t)
	})

	t.Run("AllCandidatesExcluded", func(t *testing.T) {
		mockLookup := new(MockPlaceLookup)
		strategy := NewSearchStrategy(mockLookup, time.Second, 5, logger)

		only := ratedPlaceAt("only", 4.9, 0.001)
		mockLookup.On("Search", mock.Anything, "restaurant", region, testAnchor, 5).
			Return([]types.Place{only}, nil).Twice()

		_, err := strategy.SelectBestPlace(ctx, lunchSpec, testAnchor, region, nil,
			map[string]struct{}{only.ID.String(): {}})
		assert.ErrorIs(t, err, types.ErrNoPlaceAvailable)
		mockLookup.AssertExpectations(t)
	})
}

func TestKindQuery(t *testing.T) {
	assert.Equal(t, "restaurant", kindQuery(types.SlotRestaurantLunch))
	assert.Equal(t, "restaurant", kindQuery(types.SlotRestaurantDinner))
	assert.Equal(t, "cafe", kindQuery(types.SlotCafe))
	assert.Equal(t, "attraction", kindQuery(types.SlotAttraction))
}

func TestDropExcluded(t *testing.T) {
	a := types.Place{ID: uuid.New(), Name: "a"}
	b := types.Place{ID: uuid.New(), Name: "b"}

	kept := dropExcluded([]types.Place{a, b}, map[string]struct{}{a.ID.String(): {}})
	require.Len(t, kept, 1)
	assert.Equal(t, "b", kept[0].Name)
}
