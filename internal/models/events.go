package models

import "time"

// Event types
const (
	EventTypeBookingCreated       = "BOOKING_CREATED"
	EventTypeBookingConfirmed     = "BOOKING_CONFIRMED"
	EventTypeBookingPaymentFailed = "BOOKING_PAYMENT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published when a reservation is created and a
// gateway order has been issued for it
type BookingCreatedEvent struct {
	BaseEvent
	ReservationID int64  `json:"reservation_id"`
	RenterRef     string `json:"renter_ref"`
	VehicleID     int64  `json:"vehicle_id"`
	OrderID       string `json:"order_id,omitempty"`
	TotalPrice    int64  `json:"total_price"`
}

// BookingConfirmedEvent published on the first successful capture
// settlement for a reservation
type BookingConfirmedEvent struct {
	BaseEvent
	ReservationID int64   `json:"reservation_id"`
	RenterRef     string  `json:"renter_ref"`
	OrderID       string  `json:"order_id"`
	PaymentID     string  `json:"payment_id"`
	AmountPaid    float64 `json:"amount_paid"`
	Currency      string  `json:"currency"`
}

// BookingPaymentFailedEvent published when settlement reports a
// capture failure for a pending reservation
type BookingPaymentFailedEvent struct {
	BaseEvent
	ReservationID int64  `json:"reservation_id"`
	RenterRef     string `json:"renter_ref"`
	OrderID       string `json:"order_id"`
	Reason        string `json:"reason"`
}
