// Package gateway wraps the Razorpay Orders API behind a narrow
// interface so the booking service and its tests never depend on the
// SDK directly. The client is constructed once at process start and
// injected; there is no package-level singleton.
package gateway

import (
	"context"
	"fmt"

	"booking-service/internal/apperr"
	"booking-service/internal/util"

	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"
)

// CreateOrderRequest describes a remote payment order to be created.
// Amount is in the gateway's minor currency unit.
type CreateOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]interface{}
}

// Order is the gateway-issued payment intent correlated to a
// reservation via Receipt/ID.
type Order struct {
	ID       string
	Amount   int64
	Currency string
}

// OrderCreator creates remote payment orders.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error)
}

// Client talks to Razorpay.
type Client struct {
	rzp    *razorpay.Client
	logger *zap.Logger
}

// NewClient creates a new gateway client
func NewClient(keyID, keySecret string) *Client {
	return &Client{
		rzp:    razorpay.NewClient(keyID, keySecret),
		logger: util.GetLogger(),
	}
}

// CreateOrder creates a remote payment order. The SDK call does not
// take a context, so it runs in its own goroutine and a context
// timeout surfaces as a gateway error. The call is never retried here:
// an ambiguous in-flight create must not be repeated, the receipt lets
// the gateway reject a duplicate if a caller ever retries.
func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error) {
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	}

	type orderResult struct {
		order *Order
		err   error
	}
	done := make(chan orderResult, 1)

	go func() {
		body, err := c.rzp.Order.Create(data, nil)
		if err != nil {
			done <- orderResult{nil, fmt.Errorf("%w: create order: %v", apperr.ErrGateway, err)}
			return
		}
		order, err := parseOrder(body)
		done <- orderResult{order, err}
	}()

	select {
	case <-ctx.Done():
		c.logger.Warn("Gateway order creation abandoned",
			zap.String("receipt", req.Receipt),
			zap.Error(ctx.Err()))
		return nil, fmt.Errorf("%w: create order: %v", apperr.ErrGateway, ctx.Err())
	case res := <-done:
		return res.order, res.err
	}
}

// parseOrder extracts the fields the booking pipeline needs from the
// SDK's untyped response. A response missing the order id is treated
// as a gateway error, not a success.
func parseOrder(body map[string]interface{}) (*Order, error) {
	id, ok := body["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: malformed order response: missing id", apperr.ErrGateway)
	}

	order := &Order{ID: id}

	switch amount := body["amount"].(type) {
	case float64:
		order.Amount = int64(amount)
	case int64:
		order.Amount = amount
	default:
		return nil, fmt.Errorf("%w: malformed order response: missing amount", apperr.ErrGateway)
	}

	currency, ok := body["currency"].(string)
	if !ok || currency == "" {
		return nil, fmt.Errorf("%w: malformed order response: missing currency", apperr.ErrGateway)
	}
	order.Currency = currency

	return order, nil
}
