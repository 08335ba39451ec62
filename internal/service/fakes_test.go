package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/gateway"
	"booking-service/internal/models"
)

// fakeCatalog serves vehicles from a map
type fakeCatalog struct {
	vehicles map[int64]*models.Vehicle
}

func (f *fakeCatalog) GetVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	if v, ok := f.vehicles[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: id %d", apperr.ErrVehicleNotFound, id)
}

// fakeStore is an in-memory reservation store with the same
// conditional transition semantics as the Postgres store.
type fakeStore struct {
	mu           sync.Mutex
	nextID       int64
	reservations map[int64]*models.Reservation
}

func newFakeStore() *fakeStore {
	return &fakeStore{reservations: make(map[int64]*models.Reservation)}
}

func (f *fakeStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.reservations {
		if existing.Receipt == r.Receipt {
			return fmt.Errorf("%w: duplicate receipt %s", apperr.ErrPersistence, r.Receipt)
		}
	}

	f.nextID++
	r.ID = f.nextID
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt

	stored := *r
	f.reservations[r.ID] = &stored
	return nil
}

func (f *fakeStore) GetReservationByID(ctx context.Context, id int64) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r, ok := f.reservations[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, fmt.Errorf("%w: id %d", apperr.ErrReservationNotFound, id)
}

func (f *fakeStore) GetReservationsByRenter(ctx context.Context, renterRef string) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Reservation
	for _, r := range f.reservations {
		if r.RenterRef == renterRef {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) SetGatewayOrder(ctx context.Context, id int64, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.reservations[id]
	if !ok || r.Status != models.StatusPendingPayment {
		return fmt.Errorf("%w: id %d not pending payment", apperr.ErrReservationNotFound, id)
	}
	r.OrderID = orderID
	r.PayStatus = models.PayStatusCreated
	r.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) MarkOrderFailed(ctx context.Context, id int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.reservations[id]
	if !ok {
		return fmt.Errorf("%w: id %d", apperr.ErrReservationNotFound, id)
	}
	r.Status = models.StatusPaymentFailed
	r.PayStatus = models.PayStatusFailed
	r.Error = reason
	r.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) GetReservationByOrderID(ctx context.Context, orderID string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.reservations {
		if r.OrderID == orderID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: order %s", apperr.ErrReservationNotFound, orderID)
}

func (f *fakeStore) ConfirmPayment(ctx context.Context, orderID, paymentID string, amountPaid float64, currency string, capturedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if orderID == "" {
		return false, nil
	}
	for _, r := range f.reservations {
		if r.OrderID != orderID || models.IsTerminalStatus(r.Status) {
			continue
		}
		r.Status = models.StatusConfirmed
		r.PaymentID = paymentID
		r.PayStatus = models.PayStatusCaptured
		r.AmountPaid = amountPaid
		r.Currency = currency
		captured := capturedAt
		r.CapturedAt = &captured
		r.Error = ""
		r.UpdatedAt = time.Now()
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) FailPayment(ctx context.Context, orderID, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if orderID == "" {
		return false, nil
	}
	for _, r := range f.reservations {
		if r.OrderID != orderID || r.Status != models.StatusPendingPayment {
			continue
		}
		r.Status = models.StatusPaymentFailed
		r.PayStatus = models.PayStatusFailed
		r.Error = reason
		r.UpdatedAt = time.Now()
		return true, nil
	}
	return false, nil
}

// fakeGateway records order creations and can be primed to fail
type fakeGateway struct {
	mu     sync.Mutex
	calls  int
	err    error
	orders []*gateway.CreateOrderRequest
}

func (f *fakeGateway) CreateOrder(ctx context.Context, req *gateway.CreateOrderRequest) (*gateway.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	f.orders = append(f.orders, req)
	return &gateway.Order{
		ID:       fmt.Sprintf("order_fake%d", f.calls),
		Amount:   req.Amount,
		Currency: req.Currency,
	}, nil
}

// fakePublisher collects published events
type fakePublisher struct {
	mu        sync.Mutex
	created   []*models.BookingCreatedEvent
	confirmed []*models.BookingConfirmedEvent
	failed    []*models.BookingPaymentFailedEvent
}

func (f *fakePublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, event)
	return nil
}

func (f *fakePublisher) PublishBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, event)
	return nil
}

func (f *fakePublisher) PublishBookingPaymentFailed(ctx context.Context, event *models.BookingPaymentFailedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, event)
	return nil
}
