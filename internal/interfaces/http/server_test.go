package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/application/usecases/booking"
	"reservations/internal/application/usecases/booking/mocks"
	"reservations/internal/application/usecases/catalog"
	"reservations/internal/application/usecases/waitlist"
	"reservations/internal/entities"
	"reservations/internal/idempotency"
	"reservations/internal/infrastructure/risk"
	"reservations/internal/infrastructure/tickets"
	httpInterface "reservations/internal/interfaces/http"
	"reservations/internal/repository/memory"
)

type testServer struct {
	handler http.Handler
	running bool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctrl := gomock.NewController(t)
	payments := mocks.NewMockPaymentsProvider(ctrl)
	payments.EXPECT().
		CreateOrder(gomock.Any(), gomock.Any()).
		Return("order_test", nil).
		AnyTimes()

	store := memory.NewStore()
	outbox := store.Outbox(nopPublisher{})
	now := func() time.Time { return time.Now().UTC() }

	signer, err := tickets.NewSigner([]byte("test-key"), now)
	require.NoError(t, err)

	bookings := booking.NewUsecase(
		store,
		store,
		store,
		store,
		outbox,
		risk.NewVelocityEvaluator(risk.NewMemoryCounter(now), risk.DefaultConfig()),
		payments,
		signer,
		booking.DefaultConfig(),
	)
	waitlists := waitlist.NewUsecase(store, store, store, outbox, waitlist.Config{OfferTTL: time.Minute})

	ts := &testServer{running: true}
	e := commonHTTP.NewEcho()
	httpInterface.NewServer(e, ":0", catalog.NewUsecase(store), bookings, waitlists, func() bool { return ts.running })
	ts.handler = e

	return ts
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, any) error { return nil }

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) createEvent(t *testing.T, seats int) httpInterface.EventResponse {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/events", map[string]any{
		"title":       "Concert",
		"total_seats": seats,
		"unit_price":  1000,
		"currency":    "inr",
		"starts_at":   time.Now().Add(72 * time.Hour).UTC(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[httpInterface.EventResponse](t, rec)
}

func TestEvents(t *testing.T) {
	ts := newTestServer(t)

	created := ts.createEvent(t, 5)
	assert.Equal(t, "INR", created.Currency)
	assert.Equal(t, 5, created.RemainingSeats)

	rec := ts.do(t, http.MethodGet, "/events/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[httpInterface.EventResponse](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/events/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, entities.KindState, decode[httpInterface.ErrorResponse](t, rec).Kind)

	rec = ts.do(t, http.MethodGet, "/events/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/events", map[string]any{"total_seats": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookings_full_flow(t *testing.T) {
	ts := newTestServer(t)
	event := ts.createEvent(t, 2)

	rec := ts.do(t, http.MethodPost, "/events/"+event.ID.String()+"/bookings", map[string]any{
		"user_id": "user-1",
		"email":   "user@example.com",
		"seats":   2,
	}, idempotency.Header, "key-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decode[httpInterface.StartBookingResponse](t, rec)
	assert.Equal(t, entities.BookingStatusPending, started.Status)
	assert.Equal(t, "order_test", started.PaymentOrderRef)

	// same key replays the booking
	rec = ts.do(t, http.MethodPost, "/events/"+event.ID.String()+"/bookings", map[string]any{
		"user_id": "user-1",
		"seats":   2,
	}, idempotency.Header, "key-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, started.BookingID, decode[httpInterface.StartBookingResponse](t, rec).BookingID)

	rec = ts.do(t, http.MethodPost, "/events/"+event.ID.String()+"/bookings", map[string]any{
		"user_id": "user-2",
		"seats":   1,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	capacityErr := decode[httpInterface.ErrorResponse](t, rec)
	assert.Equal(t, entities.KindCapacity, capacityErr.Kind)
	assert.Equal(t, httpInterface.HintJoinWaitlist, capacityErr.Hint)

	bookingPath := "/bookings/" + started.BookingID.String()

	rec = ts.do(t, http.MethodPut, bookingPath+"/confirm", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, bookingPath+"/confirm", map[string]any{"payment_ref": "pay_1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decode[entities.Booking](t, rec)
	assert.Equal(t, entities.BookingStatusConfirmed, confirmed.Status)
	assert.NotEmpty(t, confirmed.TicketToken)

	rec = ts.do(t, http.MethodPut, bookingPath+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, bookingPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pay_1", decode[entities.Booking](t, rec).PaymentRef)
}

func TestBookings_cancel_pending(t *testing.T) {
	ts := newTestServer(t)
	event := ts.createEvent(t, 2)

	rec := ts.do(t, http.MethodPost, "/events/"+event.ID.String()+"/bookings", map[string]any{
		"user_id": "user-1",
		"seats":   2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decode[httpInterface.StartBookingResponse](t, rec)

	rec = ts.do(t, http.MethodPut, "/bookings/"+started.BookingID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, entities.BookingStatusCancelled, decode[entities.Booking](t, rec).Status)

	rec = ts.do(t, http.MethodGet, "/events/"+event.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[httpInterface.EventResponse](t, rec).RemainingSeats)
}

func TestWaitlist(t *testing.T) {
	ts := newTestServer(t)
	event := ts.createEvent(t, 0)
	waitlistPath := "/events/" + event.ID.String() + "/waitlist"

	rec := ts.do(t, http.MethodPost, waitlistPath, map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, waitlistPath, map[string]any{"email": "fan@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entry := decode[entities.WaitlistEntry](t, rec)
	assert.Equal(t, entities.WaitlistStatusActive, entry.Status)

	rec = ts.do(t, http.MethodGet, waitlistPath+"?email=FAN@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decode[waitlist.Status](t, rec)
	assert.Equal(t, entry.ID, status.Entry.ID)
	assert.Nil(t, status.Offer)

	rec = ts.do(t, http.MethodGet, waitlistPath, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/waitlist-offers/"+uuid.NewString()+"/claim", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	open := ts.createEvent(t, 5)
	rec = ts.do(t, http.MethodPost, "/events/"+open.ID.String()+"/waitlist", map[string]any{"email": "fan@example.com"})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, httpInterface.HintBookDirectly, decode[httpInterface.ErrorResponse](t, rec).Hint)
}

func TestAdminSweeps(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/admin/sweeps/holds", "/admin/sweeps/offers", "/admin/sweeps/refunds"} {
		rec := ts.do(t, http.MethodPost, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, 0, decode[httpInterface.SweepResponse](t, rec).Count)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.running = false
	rec = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
