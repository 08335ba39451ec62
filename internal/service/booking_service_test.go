package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *fakeCatalog {
	return &fakeCatalog{vehicles: map[int64]*models.Vehicle{
		3: {ID: 3, Brand: "Toyota", Model: "Corolla", PricePerDay: 150},
		7: {ID: 7, Brand: "Honda", Model: "City", PricePerDay: 4250},
	}}
}

func validRequest(vehicleID int64) *CreateBookingRequest {
	return &CreateBookingRequest{
		VehicleID: vehicleID,
		Address: DeliveryAddress{
			Line1:      "12 MG Road",
			City:       "Bengaluru",
			PostalCode: "560001",
		},
		PhoneNumber:   "+911234567890",
		PaymentMethod: models.PaymentMethodCard,
	}
}

func newTestBookingService(store *fakeStore, gw *fakeGateway, pub *fakePublisher) *BookingService {
	return NewBookingService(store, testCatalog(), gw, pub, "INR", 1, 5*time.Second)
}

func TestCreateBookingOrder(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	pub := &fakePublisher{}
	svc := newTestBookingService(store, gw, pub)

	resp, err := svc.CreateBookingOrder(context.Background(), "renter-1", validRequest(3))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, int64(15000), resp.Amount)
	assert.Equal(t, "INR", resp.Currency)

	reservation, err := store.GetReservationByID(context.Background(), resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingPayment, reservation.Status)
	assert.Equal(t, int64(150), reservation.TotalPrice)
	assert.Equal(t, int64(150), reservation.PricePerDay)
	assert.Equal(t, "Toyota", reservation.VehicleBrand)
	assert.Equal(t, resp.OrderID, reservation.OrderID)
	assert.NotEmpty(t, reservation.Receipt)
	assert.LessOrEqual(t, len(reservation.Receipt), 40)

	require.Len(t, gw.orders, 1)
	assert.Equal(t, int64(15000), gw.orders[0].Amount)
	assert.Equal(t, reservation.Receipt, gw.orders[0].Receipt)

	require.Len(t, pub.created, 1)
	assert.Equal(t, resp.ReservationID, pub.created[0].ReservationID)
}

func TestCreateBookingOrderMultiDay(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	svc := newTestBookingService(store, gw, &fakePublisher{})

	req := validRequest(3)
	req.RentalDays = 4

	resp, err := svc.CreateBookingOrder(context.Background(), "renter-1", req)
	require.NoError(t, err)

	assert.Equal(t, int64(60000), resp.Amount)

	reservation, err := store.GetReservationByID(context.Background(), resp.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), reservation.TotalPrice)
	assert.Equal(t, 4, reservation.RentalDays)
}

func TestCreateBookingOrderValidation(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	svc := newTestBookingService(store, gw, &fakePublisher{})

	cases := []struct {
		name   string
		mutate func(*CreateBookingRequest)
	}{
		{"unsupported payment method", func(r *CreateBookingRequest) { r.PaymentMethod = "cash" }},
		{"missing phone", func(r *CreateBookingRequest) { r.PhoneNumber = "" }},
		{"missing address line", func(r *CreateBookingRequest) { r.Address.Line1 = "" }},
		{"missing city", func(r *CreateBookingRequest) { r.Address.City = "" }},
		{"missing vehicle", func(r *CreateBookingRequest) { r.VehicleID = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest(3)
			tc.mutate(req)

			_, err := svc.CreateBookingOrder(context.Background(), "renter-1", req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	// No side effects: nothing persisted, no gateway calls made
	assert.Empty(t, store.reservations)
	assert.Zero(t, gw.calls)
}

func TestCreateBookingOrderUnknownVehicle(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	svc := newTestBookingService(store, gw, &fakePublisher{})

	_, err := svc.CreateBookingOrder(context.Background(), "renter-1", validRequest(999))
	assert.ErrorIs(t, err, apperr.ErrVehicleNotFound)
	assert.Empty(t, store.reservations)
	assert.Zero(t, gw.calls)
}

func TestCreateBookingOrderGatewayFailure(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{err: fmt.Errorf("%w: create order: %v", apperr.ErrGateway, context.DeadlineExceeded)}
	pub := &fakePublisher{}
	svc := newTestBookingService(store, gw, pub)

	_, err := svc.CreateBookingOrder(context.Background(), "renter-1", validRequest(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrGateway)

	// The reservation created before the gateway call survives as an
	// auditable PAYMENT_FAILED record with the failure recorded.
	require.Len(t, store.reservations, 1)
	var reservation *models.Reservation
	for _, r := range store.reservations {
		reservation = r
	}
	assert.Equal(t, models.StatusPaymentFailed, reservation.Status)
	assert.Contains(t, reservation.Error, "deadline exceeded")
	assert.Empty(t, reservation.OrderID)
	assert.Empty(t, pub.created)
}

// brokenLinkStore fails SetGatewayOrder to simulate losing the
// database between gateway order creation and recording the order id
type brokenLinkStore struct {
	*fakeStore
}

func (b *brokenLinkStore) SetGatewayOrder(ctx context.Context, id int64, orderID string) error {
	return fmt.Errorf("%w: set gateway order: connection reset", apperr.ErrPersistence)
}

func TestCreateBookingOrderUnrecordedGatewayOrder(t *testing.T) {
	store := &brokenLinkStore{fakeStore: newFakeStore()}
	gw := &fakeGateway{}
	pub := &fakePublisher{}
	svc := NewBookingService(store, testCatalog(), gw, pub, "INR", 1, 5*time.Second)

	_, err := svc.CreateBookingOrder(context.Background(), "renter-1", validRequest(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrPersistence)

	// The remote order exists but was never linked; the reservation is
	// parked as failed with the order id recorded for reconciliation.
	require.Len(t, store.reservations, 1)
	var reservation *models.Reservation
	for _, r := range store.reservations {
		reservation = r
	}
	assert.Equal(t, models.StatusPaymentFailed, reservation.Status)
	assert.Contains(t, reservation.Error, "order_fake1")
	assert.Empty(t, pub.created)
}

func TestCreateBookingOrderConcurrentReceiptsUnique(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	svc := newTestBookingService(store, gw, &fakePublisher{})

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBookingOrder(context.Background(), "renter-1", validRequest(3))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// The fake store rejects duplicate receipts the way the unique
	// index does; every call succeeding means every receipt was unique.
	for err := range errs {
		assert.NoError(t, err)
	}

	seen := make(map[string]bool)
	for _, r := range store.reservations {
		assert.False(t, seen[r.Receipt], "duplicate receipt %s", r.Receipt)
		seen[r.Receipt] = true
	}
	assert.Len(t, seen, n)
}

func TestDirectBook(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	svc := newTestBookingService(store, gw, &fakePublisher{})

	id, err := svc.DirectBook(context.Background(), "renter-2", validRequest(3))
	require.NoError(t, err)
	require.NotZero(t, id)

	reservation, err := store.GetReservationByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reservation.Status)
	assert.Equal(t, int64(150), reservation.TotalPrice)
	assert.Empty(t, reservation.OrderID)
	assert.Zero(t, gw.calls)
}

func TestDirectBookValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestBookingService(store, &fakeGateway{}, &fakePublisher{})

	req := validRequest(3)
	req.PaymentMethod = "bitcoin"

	_, err := svc.DirectBook(context.Background(), "renter-2", req)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, store.reservations)
}

func TestGetBookingScopedToRenter(t *testing.T) {
	store := newFakeStore()
	svc := newTestBookingService(store, &fakeGateway{}, &fakePublisher{})

	id, err := svc.DirectBook(context.Background(), "renter-2", validRequest(3))
	require.NoError(t, err)

	_, err = svc.GetBooking(context.Background(), "renter-2", id)
	assert.NoError(t, err)

	_, err = svc.GetBooking(context.Background(), "someone-else", id)
	assert.True(t, errors.Is(err, apperr.ErrReservationNotFound))
}
