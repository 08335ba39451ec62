package models

import "time"

// Vehicle represents a rentable car in the catalog
type Vehicle struct {
	ID          int64     `db:"id" json:"id"`
	Brand       string    `db:"brand" json:"brand"`
	Model       string    `db:"model" json:"model"`
	PricePerDay int64     `db:"price_per_day" json:"price_per_day"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PaymentDetails holds gateway correlation data for a reservation.
// Fields are merged in place, never replaced wholesale, so diagnostic
// data recorded on earlier attempts survives later updates.
type PaymentDetails struct {
	Provider   string     `db:"payment_provider" json:"payment_provider,omitempty"`
	Receipt    string     `db:"receipt" json:"receipt,omitempty"`
	OrderID    string     `db:"payment_order_id" json:"payment_order_id,omitempty"`
	PaymentID  string     `db:"payment_id" json:"payment_id,omitempty"`
	PayStatus  string     `db:"payment_status" json:"payment_status,omitempty"`
	AmountPaid float64    `db:"amount_paid" json:"amount_paid,omitempty"`
	Currency   string     `db:"payment_currency" json:"payment_currency,omitempty"`
	CapturedAt *time.Time `db:"captured_at" json:"captured_at,omitempty"`
	Error      string     `db:"payment_error" json:"payment_error,omitempty"`
}

// Reservation is the durable record of a booking attempt, from intent
// through payment settlement. Catalog data is denormalized at creation
// so later price changes never alter a historical booking.
type Reservation struct {
	ID           int64  `db:"id" json:"id"`
	RenterRef    string `db:"renter_ref" json:"renter_ref"`
	VehicleID    int64  `db:"vehicle_id" json:"vehicle_id"`
	VehicleBrand string `db:"vehicle_brand" json:"vehicle_brand"`
	VehicleModel string `db:"vehicle_model" json:"vehicle_model"`
	PricePerDay  int64  `db:"price_per_day" json:"price_per_day"`
	RentalDays   int    `db:"rental_days" json:"rental_days"`
	TotalPrice   int64  `db:"total_price" json:"total_price"`

	AddressLine1 string `db:"address_line1" json:"address_line1"`
	AddressLine2 string `db:"address_line2" json:"address_line2,omitempty"`
	City         string `db:"city" json:"city"`
	PostalCode   string `db:"postal_code" json:"postal_code"`
	RenterPhone  string `db:"renter_phone" json:"renter_phone"`

	PaymentMethod string `db:"payment_method" json:"payment_method"`
	Status        string `db:"status" json:"status"`

	PaymentDetails

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Reservation statuses
const (
	StatusPending           = "PENDING"
	StatusPendingPayment    = "PENDING_PAYMENT"
	StatusConfirmed         = "CONFIRMED"
	StatusPaymentFailed     = "PAYMENT_FAILED"
	StatusOngoing           = "ONGOING"
	StatusCompleted         = "COMPLETED"
	StatusCancelledByUser   = "CANCELLED_BY_USER"
	StatusCancelledBySystem = "CANCELLED_BY_SYSTEM"
)

// Gateway-reported payment sub-statuses
const (
	PayStatusCreated  = "created"
	PayStatusCaptured = "captured"
	PayStatusFailed   = "failed"
)

// Payment methods accepted at the API boundary. This is the single
// source of truth for the closed set; the store trusts validated values.
const (
	PaymentMethodCard       = "card"
	PaymentMethodUPI        = "upi"
	PaymentMethodNetbanking = "netbanking"
)

// IsValidPaymentMethod reports whether m belongs to the accepted set.
func IsValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetbanking:
		return true
	}
	return false
}

// IsTerminalStatus reports whether a reservation in status s may no
// longer have its payment correlation or price fields mutated.
func IsTerminalStatus(s string) bool {
	switch s {
	case StatusConfirmed, StatusCompleted, StatusCancelledByUser, StatusCancelledBySystem:
		return true
	}
	return false
}
