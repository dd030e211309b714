package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssongk/daytrip/app/observability/metrics"
	"github.com/ssongk/daytrip/internal/api/itinerary"
	"github.com/ssongk/daytrip/internal/api/reviews"
	"github.com/ssongk/daytrip/internal/region"
	"github.com/ssongk/daytrip/internal/router"
	"github.com/ssongk/daytrip/internal/types"
)

// e2eLookup serves deterministic rating-ranked pools per category.
type e2eLookup struct {
	mu    sync.Mutex
	pools map[string][]types.Place
}

func newE2ELookup() *e2eLookup {
	pool := func(category string, count int) []types.Place {
		places := make([]types.Place, count)
		for i := range places {
			places[i] = types.Place{
				ID:       uuid.New(),
				Name:     fmt.Sprintf("%s-%d", category, i+1),
				Category: category,
				Coordinate: types.Coordinate{
					Latitude:  35.1587 + float64(i)*0.003,
					Longitude: 129.1604,
				},
				Rating: 4.9 - float64(i)*0.1,
			}
		}
		return places
	}
	return &e2eLookup{pools: map[string][]types.Place{
		"restaurant": pool("restaurant", 8),
		"cafe":       pool("cafe", 6),
		"attraction": pool("attraction", 8),
	}}
}

func (l *e2eLookup) Search(ctx context.Context, query, regionFilter string, anchor types.Coordinate, limit int) ([]types.Place, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pool := l.pools[strings.Fields(query)[0]]
	if len(pool) > limit {
		pool = pool[:limit]
	}
	out := make([]types.Place, len(pool))
	copy(out, pool)
	return out, nil
}

// memoryReviews keeps the review backlog in memory for the e2e flow.
type memoryReviews struct {
	mu       sync.Mutex
	pending  int
	reindexs int
}

func (m *memoryReviews) InsertReview(ctx context.Context, review reviews.Review) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending++
	return uuid.New(), nil
}

func (m *memoryReviews) CountUnindexed(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending, nil
}

func (m *memoryReviews) Reindex(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = 0
	m.reindexs++
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	metrics.InitAppMetrics()
	logger := slog.Default()

	itineraryService := itinerary.NewItineraryService(newE2ELookup(), region.RuleNormalizer{}, itinerary.Config{
		MaxConcurrentSearches: 5,
		SearchCallTimeout:     time.Second,
		CandidateLimit:        10,
	}, logger)
	reviewsService := reviews.NewReviewsService(&memoryReviews{}, 3, logger)

	mainRouter := router.SetupRouter(&router.Config{
		ItineraryHandler: itinerary.NewHandlerImpl(itineraryService, logger),
		ReviewsHandler:   reviews.NewHandlerImpl(reviewsService, logger),
		Version:          "test",
	})
	server := httptest.NewServer(mainRouter)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeSession(t *testing.T, resp *http.Response) itinerary.Session {
	t.Helper()
	defer resp.Body.Close()
	var session itinerary.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	return session
}

func TestPlanningFlow(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/trips", map[string]any{
		"destination": "Busan Haeundae-gu",
		"centroid":    map[string]float64{"latitude": 35.1587, "longitude": 129.1604},
		"days":        3,
		"party_size":  2,
		"travel_mode": "walking",
		"start_date":  "2026-09-12",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decodeSession(t, resp)
	assert.Equal(t, "Haeundae-gu", session.Region)
	assert.False(t, session.ReadyForExport)
	require.Len(t, session.Itinerary.Days, 3)

	base := fmt.Sprintf("%s/api/v1/trips/%s", server.URL, session.ID)

	t.Run("FetchItinerary", func(t *testing.T) {
		resp, err := http.Get(base)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decodeSession(t, resp)
		assert.Equal(t, session.ID, got.ID)
	})

	t.Run("ReplaceSlot", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPut, base+"/days/2/slots/1", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decodeSession(t, resp)
		assert.Equal(t, session.Itinerary.Days[0], got.Itinerary.Days[0])
	})

	t.Run("ConfirmThenEditRejected", func(t *testing.T) {
		resp := postJSON(t, base+"/confirm", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decodeSession(t, resp)
		assert.True(t, got.ReadyForExport)

		req, err := http.NewRequest(http.MethodDelete, base+"/days/1/slots/0", nil)
		require.NoError(t, err)
		editResp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer editResp.Body.Close()
		assert.Equal(t, http.StatusConflict, editResp.StatusCode)
	})

	t.Run("UnknownSession", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/api/v1/trips/%s", server.URL, uuid.New()))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestReviewIngestionFlow(t *testing.T) {
	server := newTestServer(t)
	placeID := uuid.New().String()

	submit := func() reviews.IngestResult {
		resp := postJSON(t, server.URL+"/api/v1/reviews", map[string]any{
			"place_id": placeID,
			"author":   "minji",
			"rating":   4.5,
			"comment":  "lovely at sunset",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		defer resp.Body.Close()
		var result reviews.IngestResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		return result
	}

	// Batch size is 3: the first two only accumulate, the third reindexes.
	assert.False(t, submit().Reindexed)
	assert.False(t, submit().Reindexed)
	third := submit()
	assert.True(t, third.Reindexed)
	assert.Zero(t, third.Pending)
}
