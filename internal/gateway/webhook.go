package gateway

import (
	rzputils "github.com/razorpay/razorpay-go/utils"
)

// Webhook event kinds handled by settlement. Anything else is
// acknowledged and ignored so new gateway event types never break us.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// SignatureHeader carries the hex-encoded HMAC of the raw request body.
const SignatureHeader = "X-Razorpay-Signature"

// EventIDHeader carries the gateway's unique id for a delivery, reused
// across retries of the same event.
const EventIDHeader = "X-Razorpay-Event-Id"

// WebhookEvent is the envelope the gateway posts to us.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// PaymentEntity is the payment snapshot inside a webhook event.
// Amount is in minor currency units, CreatedAt in epoch seconds.
type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	CreatedAt        int64  `json:"created_at"`
	ErrorDescription string `json:"error_description"`
}

// VerifyWebhookSignature checks the gateway's HMAC over the exact raw
// body bytes. Verification must happen before the body is parsed;
// re-serializing parsed JSON would invalidate the signature.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	return rzputils.VerifyWebhookSignature(string(body), signature, secret)
}
