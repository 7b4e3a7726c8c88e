package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/frontdesk/internal/booking"
	"github.com/iliyamo/frontdesk/internal/model"
)

type fakeService struct {
	checkReq  booking.AvailabilityRequest
	commitReq booking.CommitRequest
	grant     *booking.HoldGrant
	id        string
	res       *model.Reservation
	rest      *model.Restaurant
	err       error
}

func (f *fakeService) CheckAvailability(_ context.Context, req booking.AvailabilityRequest) (*booking.HoldGrant, error) {
	f.checkReq = req
	return f.grant, f.err
}

func (f *fakeService) ReleaseHold(context.Context, booking.ReleaseRequest) error { return f.err }

func (f *fakeService) Commit(_ context.Context, req booking.CommitRequest) (string, error) {
	f.commitReq = req
	return f.id, f.err
}

func (f *fakeService) GetReservation(context.Context, string) (*model.Reservation, error) {
	return f.res, f.err
}

func (f *fakeService) CancelReservation(context.Context, string) error { return f.err }

func (f *fakeService) GetRestaurant(context.Context, string) (*model.Restaurant, error) {
	return f.rest, f.err
}

func (f *fakeService) Ready(context.Context) error { return f.err }

func newServer(svc BookingService) *echo.Echo {
	e := echo.New()
	errs := BookingErrors(nil)
	avail := NewAvailabilityHandler(svc, errs)
	res := NewReservationHandler(svc, errs)
	e.GET("/healthz", Health)
	e.GET("/readiness", Readiness(svc, errs))
	e.POST("/availability/check", avail.Check)
	e.DELETE("/availability/hold", avail.Release)
	e.POST("/reservations/commit", res.Commit)
	e.GET("/reservations/:id", res.Get)
	e.POST("/reservations/:id/cancel", res.Cancel)
	e.GET("/restaurants/:id", NewRestaurantHandler(svc, errs).Get)
	return e
}

func do(e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

const checkBody = `{"restaurant_id":"r1","party_size":2,"start_ts":"2025-06-01T19:00:00+02:00","duration_minutes":90}`

func TestCheckGrantsHold(t *testing.T) {
	start := time.Date(2025, 6, 1, 17, 0, 0, 0, time.UTC)
	svc := &fakeService{grant: &booking.HoldGrant{
		HoldID: "h1", RestaurantID: "r1", Start: start, End: start.Add(90 * time.Minute),
		DurationMinutes: 90, ExpiresInSeconds: 300,
	}}
	rec, out := do(newServer(svc), http.MethodPost, "/availability/check", checkBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !svc.checkReq.Start.Equal(start) || svc.checkReq.PartySize != 2 {
		t.Fatalf("request not decoded: %+v", svc.checkReq)
	}
	if out["hold_id"] != "h1" || out["start_ts"] != "2025-06-01T17:00:00Z" ||
		out["end_ts"] != "2025-06-01T18:30:00Z" || out["expires_in_seconds"] != float64(300) {
		t.Fatalf("unexpected body %v", out)
	}
}

func TestCheckConflictCarriesAlternates(t *testing.T) {
	alt := time.Date(2025, 6, 1, 17, 15, 0, 0, time.UTC)
	svc := &fakeService{err: &booking.UnavailableError{
		Message: "Slot unavailable", Alternates: []time.Time{alt}, Reason: booking.ErrCapacityExceeded,
	}}
	rec, out := do(newServer(svc), http.MethodPost, "/availability/check", checkBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d", rec.Code)
	}
	if out["code"] != "slot_unavailable" || out["message"] != "Slot unavailable" || out["reason"] != "capacity_exceeded" {
		t.Fatalf("unexpected body %v", out)
	}
	alts, _ := out["alternates"].([]any)
	if len(alts) != 1 || alts[0] != "2025-06-01T17:15:00Z" {
		t.Fatalf("alternates = %v", out["alternates"])
	}
}

func TestCheckEmptyAlternatesIsArray(t *testing.T) {
	svc := &fakeService{err: &booking.UnavailableError{Message: "Slot unavailable", Reason: booking.ErrSlotHeld}}
	rec, _ := do(newServer(svc), http.MethodPost, "/availability/check", checkBody)
	if !strings.Contains(rec.Body.String(), `"alternates":[]`) {
		t.Fatalf("alternates must be an empty array: %s", rec.Body.String())
	}
}

func TestCheckRejectsNaiveStart(t *testing.T) {
	svc := &fakeService{}
	body := `{"restaurant_id":"r1","party_size":2,"start_ts":"2025-06-01T19:00:00","duration_minutes":90}`
	rec, out := do(newServer(svc), http.MethodPost, "/availability/check", body)
	if rec.Code != http.StatusUnprocessableEntity || out["code"] != "invalid_input" {
		t.Fatalf("status %d body %v", rec.Code, out)
	}
	if svc.checkReq.RestaurantID != "" {
		t.Fatalf("service must not be called")
	}
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: party_size must be between 1 and 50", booking.ErrInvalidInput), http.StatusUnprocessableEntity, "invalid_input"},
		{booking.ErrUnbookable, http.StatusBadRequest, "unbookable"},
		{booking.ErrSlotHeld, http.StatusConflict, "slot_held"},
		{booking.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
		{booking.ErrSlotAlreadyBooked, http.StatusConflict, "slot_already_booked"},
		{booking.ErrBlackedOut, http.StatusConflict, "blacked_out"},
		{fmt.Errorf("%w: mysql down", booking.ErrBackingStoreUnavailable), http.StatusServiceUnavailable, "backing_store_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		svc := &fakeService{err: tt.err}
		body := `{"restaurant_id":"r1","name":"Ada","party_size":2,"start_ts":"2025-06-01T19:00:00Z","duration_minutes":90}`
		rec, out := do(newServer(svc), http.MethodPost, "/reservations/commit", body)
		if rec.Code != tt.status || out["code"] != tt.code {
			t.Fatalf("%v: status %d code %v, want %d %s", tt.err, rec.Code, out["code"], tt.status, tt.code)
		}
	}
}

func TestInternalErrorIsNotEchoed(t *testing.T) {
	svc := &fakeService{err: errors.New("dial tcp 10.0.0.5:3306: secret detail")}
	rec, _ := do(newServer(svc), http.MethodGet, "/reservations/x", "")
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "secret") {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestCommitCreated(t *testing.T) {
	svc := &fakeService{id: "res-1"}
	body := `{"restaurant_id":"r1","name":"Ada","party_size":2,"start_ts":"2025-06-01T19:00:00Z","duration_minutes":90,"hold_id":"h1","notes":"window"}`
	rec, out := do(newServer(svc), http.MethodPost, "/reservations/commit", body)
	if rec.Code != http.StatusCreated || out["id"] != "res-1" {
		t.Fatalf("status %d body %v", rec.Code, out)
	}
	if svc.commitReq.HoldID != "h1" || svc.commitReq.Notes == nil || *svc.commitReq.Notes != "window" {
		t.Fatalf("request not decoded: %+v", svc.commitReq)
	}
}

func TestCommitBadJSON(t *testing.T) {
	rec, out := do(newServer(&fakeService{}), http.MethodPost, "/reservations/commit", `{"party_size":"two"`)
	if rec.Code != http.StatusUnprocessableEntity || out["code"] != "invalid_input" {
		t.Fatalf("status %d body %v", rec.Code, out)
	}
}

func TestReleaseHold(t *testing.T) {
	body := `{"restaurant_id":"r1","party_size":2,"start_ts":"2025-06-01T19:00:00Z","duration_minutes":90,"hold_id":"h1"}`
	rec, _ := do(newServer(&fakeService{}), http.MethodDelete, "/availability/hold", body)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestReservationLookups(t *testing.T) {
	svc := &fakeService{err: booking.ErrReservationNotFound}
	if rec, out := do(newServer(svc), http.MethodGet, "/reservations/nope", ""); rec.Code != http.StatusNotFound || out["code"] != "not_found" {
		t.Fatalf("status %d body %v", rec.Code, out)
	}

	svc = &fakeService{err: booking.ErrAlreadyCancelled}
	if rec, out := do(newServer(svc), http.MethodPost, "/reservations/r/cancel", ""); rec.Code != http.StatusConflict || out["code"] != "already_cancelled" {
		t.Fatalf("status %d body %v", rec.Code, out)
	}

	svc = &fakeService{}
	if rec, out := do(newServer(svc), http.MethodPost, "/reservations/r/cancel", ""); rec.Code != http.StatusOK || out["status"] != "cancelled" {
		t.Fatalf("status %d body %v", rec.Code, out)
	}

	svc = &fakeService{rest: &model.Restaurant{ID: "r1", Name: "Trattoria", Timezone: "Europe/Rome"}}
	if rec, out := do(newServer(svc), http.MethodGet, "/restaurants/r1", ""); rec.Code != http.StatusOK || out["name"] != "Trattoria" {
		t.Fatalf("status %d body %v", rec.Code, out)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	rec, out := do(newServer(&fakeService{}), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || out["ok"] != true {
		t.Fatalf("healthz: %d %v", rec.Code, out)
	}
	rec, out = do(newServer(&fakeService{}), http.MethodGet, "/readiness", "")
	if rec.Code != http.StatusOK || out["ready"] != true {
		t.Fatalf("readiness: %d %v", rec.Code, out)
	}
	svc := &fakeService{err: fmt.Errorf("%w: redis: down", booking.ErrBackingStoreUnavailable)}
	rec, out = do(newServer(svc), http.MethodGet, "/readiness", "")
	if rec.Code != http.StatusServiceUnavailable || out["ready"] != false {
		t.Fatalf("readiness down: %d %v", rec.Code, out)
	}
}
