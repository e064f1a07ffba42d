package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIFetcherFetch(t *testing.T) {
	userID := uuid.New()
	slotID := uuid.New()
	resID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, userID.String(), r.Header.Get("X-User-ID"))
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/v1/slots":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"slots": []map[string]interface{}{
					{
						"slot": map[string]interface{}{
							"id":         slotID,
							"mentor_id":  uuid.New(),
							"start_time": time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
							"end_time":   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
						},
						"availability": map[string]interface{}{
							"booked_minutes":       0,
							"available_minutes":    60,
							"booking_rate_percent": 0,
							"status":               "available",
						},
					},
				},
			})
		case "/api/v1/reservations":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"reservations": []map[string]interface{}{
					{
						"id":      resID,
						"slot_id": slotID,
						"status":  "CONFIRMED",
					},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	fetcher := NewAPIFetcher(srv.URL, userID, srv.Client())
	snap, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Slots, 1)
	assert.Equal(t, slotID, snap.Slots[0].ID)
	require.Len(t, snap.Reservations, 1)
	assert.Equal(t, resID, snap.Reservations[0].ID)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestAPIFetcherNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := NewAPIFetcher(srv.URL, uuid.New(), srv.Client())
	_, err := fetcher.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}
