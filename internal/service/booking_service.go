package service

import (
	"context"
	"fmt"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/gateway"
	"booking-service/internal/models"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationStore is the subset of the store the booking service needs.
type ReservationStore interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservationByID(ctx context.Context, id int64) (*models.Reservation, error)
	GetReservationsByRenter(ctx context.Context, renterRef string) ([]models.Reservation, error)
	SetGatewayOrder(ctx context.Context, id int64, orderID string) error
	MarkOrderFailed(ctx context.Context, id int64, reason string) error
}

// CreatedPublisher publishes booking-created events.
type CreatedPublisher interface {
	PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error
}

// VehicleCatalog resolves catalog vehicles.
type VehicleCatalog interface {
	GetVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error)
}

// BookingService orchestrates order issuance and direct bookings.
type BookingService struct {
	store          ReservationStore
	catalog        VehicleCatalog
	gateway        gateway.OrderCreator
	publisher      CreatedPublisher
	currency       string
	defaultDays    int
	providerName   string
	gatewayTimeout time.Duration
	logger         *zap.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	store ReservationStore,
	catalog VehicleCatalog,
	orderCreator gateway.OrderCreator,
	publisher CreatedPublisher,
	currency string,
	defaultDays int,
	gatewayTimeout time.Duration,
) *BookingService {
	if defaultDays <= 0 {
		defaultDays = 1
	}
	return &BookingService{
		store:          store,
		catalog:        catalog,
		gateway:        orderCreator,
		publisher:      publisher,
		currency:       currency,
		defaultDays:    defaultDays,
		providerName:   "razorpay",
		gatewayTimeout: gatewayTimeout,
		logger:         util.GetLogger(),
	}
}

// DeliveryAddress is where the car is dropped off
type DeliveryAddress struct {
	Line1      string `json:"address_line1" binding:"required"`
	Line2      string `json:"address_line2"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
}

// CreateBookingRequest represents a request to book a vehicle
type CreateBookingRequest struct {
	VehicleID     int64           `json:"vehicle_id" binding:"required"`
	RentalDays    int             `json:"rental_days"`
	Address       DeliveryAddress `json:"delivery_address" binding:"required"`
	PhoneNumber   string          `json:"phone_number" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
}

// OrderResponse is returned to the client for payment completion.
// Amount is in the gateway's minor currency unit.
type OrderResponse struct {
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	ReservationID int64  `json:"reservation_id"`
}

// validate checks the request against the closed payment-method set
// and required contact fields. No side effects on failure.
func (s *BookingService) validate(req *CreateBookingRequest) error {
	if req.VehicleID <= 0 {
		return fmt.Errorf("%w: vehicle_id is required", apperr.ErrValidation)
	}
	if req.PhoneNumber == "" {
		return fmt.Errorf("%w: phone_number is required", apperr.ErrValidation)
	}
	if req.Address.Line1 == "" || req.Address.City == "" || req.Address.PostalCode == "" {
		return fmt.Errorf("%w: delivery address is incomplete", apperr.ErrValidation)
	}
	if !models.IsValidPaymentMethod(req.PaymentMethod) {
		return fmt.Errorf("%w: unsupported payment method %q", apperr.ErrValidation, req.PaymentMethod)
	}
	return nil
}

// newReservation builds a reservation with the catalog snapshot
// denormalized in, so later catalog changes never alter this booking.
func (s *BookingService) newReservation(renterRef string, req *CreateBookingRequest, vehicle *models.Vehicle, status string) *models.Reservation {
	days := req.RentalDays
	if days <= 0 {
		days = s.defaultDays
	}

	return &models.Reservation{
		RenterRef:     renterRef,
		VehicleID:     vehicle.ID,
		VehicleBrand:  vehicle.Brand,
		VehicleModel:  vehicle.Model,
		PricePerDay:   vehicle.PricePerDay,
		RentalDays:    days,
		TotalPrice:    vehicle.PricePerDay * int64(days),
		AddressLine1:  req.Address.Line1,
		AddressLine2:  req.Address.Line2,
		City:          req.Address.City,
		PostalCode:    req.Address.PostalCode,
		RenterPhone:   req.PhoneNumber,
		PaymentMethod: req.PaymentMethod,
		Status:        status,
		PaymentDetails: models.PaymentDetails{
			Provider: s.providerName,
			Receipt:  newReceipt(),
			Currency: s.currency,
		},
	}
}

// CreateBookingOrder validates the request, persists a pending
// reservation and then creates the gateway order. The reservation is
// written before the gateway call so a crash or gateway failure always
// leaves a durable, auditable record of intent; the reverse orphan (a
// remote order without a local record) cannot happen by construction.
func (s *BookingService) CreateBookingOrder(ctx context.Context, renterRef string, req *CreateBookingRequest) (*OrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreateBookingOrder")
	defer span.End()

	if err := s.validate(req); err != nil {
		util.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	vehicle, err := s.catalog.GetVehicleByID(ctx, req.VehicleID)
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("vehicle_lookup").Inc()
		return nil, err
	}
	if vehicle.PricePerDay <= 0 {
		util.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: vehicle %d has no valid price", apperr.ErrValidation, vehicle.ID)
	}

	reservation := s.newReservation(renterRef, req, vehicle, models.StatusPendingPayment)

	if err := s.store.CreateReservation(ctx, reservation); err != nil {
		util.BookingsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, err
	}

	util.BookingsCreatedTotal.Inc()
	s.logger.Info("Reservation created",
		zap.Int64("reservation_id", reservation.ID),
		zap.String("renter_ref", renterRef),
		zap.Int64("vehicle_id", vehicle.ID),
		zap.Int64("total_price", reservation.TotalPrice))

	order, err := s.createGatewayOrder(ctx, reservation)
	if err != nil {
		// Retain the reservation as PAYMENT_FAILED so the attempt is
		// auditable, then surface the gateway error.
		util.GatewayOrderFailuresTotal.Inc()
		util.BookingsFailedTotal.WithLabelValues("gateway").Inc()
		if markErr := s.store.MarkOrderFailed(ctx, reservation.ID, err.Error()); markErr != nil {
			s.logger.Error("Failed to record gateway failure",
				zap.Int64("reservation_id", reservation.ID),
				zap.Error(markErr))
		}
		return nil, err
	}

	if err := s.store.SetGatewayOrder(ctx, reservation.ID, order.ID); err != nil {
		// The remote order exists but was never linked. Park the
		// reservation as failed with the order id in the reason so
		// reconciliation can find the orphaned order later.
		util.BookingsFailedTotal.WithLabelValues("db_error").Inc()
		reason := fmt.Sprintf("gateway order %s created but not recorded: %v", order.ID, err)
		if markErr := s.store.MarkOrderFailed(ctx, reservation.ID, reason); markErr != nil {
			s.logger.Error("Failed to record unlinked gateway order",
				zap.Int64("reservation_id", reservation.ID),
				zap.String("order_id", order.ID),
				zap.Error(markErr))
		}
		return nil, err
	}

	util.GatewayOrdersCreatedTotal.Inc()
	s.logger.Info("Gateway order created",
		zap.Int64("reservation_id", reservation.ID),
		zap.String("order_id", order.ID),
		zap.Int64("amount", order.Amount))

	s.publishBookingCreated(ctx, reservation, order.ID)

	return &OrderResponse{
		OrderID:       order.ID,
		Amount:        order.Amount,
		Currency:      order.Currency,
		ReservationID: reservation.ID,
	}, nil
}

// createGatewayOrder issues the remote order with the amount converted
// to minor currency units. The call is bounded by the configured
// timeout and never retried: the receipt lets the gateway reject
// duplicates if a retry is ever attempted elsewhere.
func (s *BookingService) createGatewayOrder(ctx context.Context, r *models.Reservation) (*gateway.Order, error) {
	if s.gatewayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.gatewayTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		util.GatewayOrderLatency.Observe(time.Since(start).Seconds())
	}()

	return s.gateway.CreateOrder(ctx, &gateway.CreateOrderRequest{
		Amount:   r.TotalPrice * 100,
		Currency: s.currency,
		Receipt:  r.Receipt,
		Notes: map[string]interface{}{
			"renter_ref":     r.RenterRef,
			"vehicle_id":     r.VehicleID,
			"reservation_id": r.ID,
		},
	})
}

func (s *BookingService) publishBookingCreated(ctx context.Context, r *models.Reservation, orderID string) {
	if s.publisher == nil {
		return
	}

	event := &models.BookingCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingCreated,
			Timestamp: time.Now(),
		},
		ReservationID: r.ID,
		RenterRef:     r.RenterRef,
		VehicleID:     r.VehicleID,
		OrderID:       orderID,
		TotalPrice:    r.TotalPrice,
	}

	if err := s.publisher.PublishBookingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCreated event", zap.Error(err))
	}
}

// DirectBook creates a reservation in PENDING status without a gateway
// order, for flows that skip synchronous payment capture.
func (s *BookingService) DirectBook(ctx context.Context, renterRef string, req *CreateBookingRequest) (int64, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.DirectBook")
	defer span.End()

	if err := s.validate(req); err != nil {
		util.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return 0, err
	}

	vehicle, err := s.catalog.GetVehicleByID(ctx, req.VehicleID)
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("vehicle_lookup").Inc()
		return 0, err
	}
	if vehicle.PricePerDay <= 0 {
		util.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return 0, fmt.Errorf("%w: vehicle %d has no valid price", apperr.ErrValidation, vehicle.ID)
	}

	reservation := s.newReservation(renterRef, req, vehicle, models.StatusPending)
	reservation.Provider = ""

	if err := s.store.CreateReservation(ctx, reservation); err != nil {
		util.BookingsFailedTotal.WithLabelValues("db_error").Inc()
		return 0, err
	}

	util.DirectBookingsTotal.Inc()
	s.logger.Info("Direct booking created",
		zap.Int64("reservation_id", reservation.ID),
		zap.String("renter_ref", renterRef))

	return reservation.ID, nil
}

// GetBooking retrieves a reservation scoped to its renter
func (s *BookingService) GetBooking(ctx context.Context, renterRef string, id int64) (*models.Reservation, error) {
	reservation, err := s.store.GetReservationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation.RenterRef != renterRef {
		return nil, fmt.Errorf("%w: id %d", apperr.ErrReservationNotFound, id)
	}
	return reservation, nil
}

// ListBookings retrieves all reservations for a renter
func (s *BookingService) ListBookings(ctx context.Context, renterRef string) ([]models.Reservation, error) {
	return s.store.GetReservationsByRenter(ctx, renterRef)
}
