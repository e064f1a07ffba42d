package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/muelab/lessonbook/internal/engine"
	"github.com/muelab/lessonbook/internal/model"
)

// APIFetcher реализация Fetcher поверх HTTP API сервера: один авторитетный
// снимок из GET /api/v1/slots и GET /api/v1/reservations в скоупе пользователя
type APIFetcher struct {
	baseURL string
	userID  uuid.UUID
	client  *http.Client
}

func NewAPIFetcher(baseURL string, userID uuid.UUID, client *http.Client) *APIFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIFetcher{baseURL: baseURL, userID: userID, client: client}
}

type slotsResponse struct {
	Slots []struct {
		Slot         *model.LessonSlot   `json:"slot"`
		Availability engine.Availability `json:"availability"`
	} `json:"slots"`
}

type reservationsResponse struct {
	Reservations []*model.Reservation `json:"reservations"`
}

// Fetch запрашивает полный снимок; любой сбой транспорта отдаётся вызывающему,
// Loop сам решает что делать с устаревшим состоянием
func (f *APIFetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	var slotsResp slotsResponse
	if err := f.get(ctx, "/api/v1/slots", &slotsResp); err != nil {
		return nil, fmt.Errorf("fetch slots: %w", err)
	}

	var resResp reservationsResponse
	if err := f.get(ctx, "/api/v1/reservations", &resResp); err != nil {
		return nil, fmt.Errorf("fetch reservations: %w", err)
	}

	slots := make([]*model.LessonSlot, 0, len(slotsResp.Slots))
	for _, s := range slotsResp.Slots {
		slots = append(slots, s.Slot)
	}

	return &Snapshot{
		Slots:        slots,
		Reservations: resResp.Reservations,
		FetchedAt:    time.Now(),
	}, nil
}

func (f *APIFetcher) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-User-ID", f.userID.String())

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
