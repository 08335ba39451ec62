package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/gateway"
	"booking-service/internal/models"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettlementStore is the subset of the store settlement needs. Both
// transition operations are atomic conditional merges keyed by the
// gateway order id; they report whether the transition was applied so
// duplicates and late arrivals can be told apart from real work.
type SettlementStore interface {
	GetReservationByOrderID(ctx context.Context, orderID string) (*models.Reservation, error)
	ConfirmPayment(ctx context.Context, orderID, paymentID string, amountPaid float64, currency string, capturedAt time.Time) (bool, error)
	FailPayment(ctx context.Context, orderID, reason string) (bool, error)
}

// SettlementPublisher publishes settlement outcome events.
type SettlementPublisher interface {
	PublishBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error
	PublishBookingPaymentFailed(ctx context.Context, event *models.BookingPaymentFailedEvent) error
}

// EventDeduper is a best-effort duplicate-delivery filter in front of
// the store's conditional updates, which stay authoritative. An event
// id is only marked delivered after the store work succeeded, so a
// transient store error followed by a gateway retry still reaches the
// store instead of being swallowed as a duplicate.
type EventDeduper interface {
	SeenDelivery(ctx context.Context, eventID string) (bool, error)
	MarkDelivered(ctx context.Context, eventID string, ttl time.Duration) error
}

// SettlementService reconciles asynchronous gateway events into
// definitive reservation state. Deliveries are at-least-once and may
// arrive out of order; correctness relies on idempotent, conditional
// per-record updates, not on ordering.
type SettlementService struct {
	store     SettlementStore
	publisher SettlementPublisher
	deduper   EventDeduper
	dedupeTTL time.Duration
	logger    *zap.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(store SettlementStore, publisher SettlementPublisher, deduper EventDeduper) *SettlementService {
	return &SettlementService{
		store:     store,
		publisher: publisher,
		deduper:   deduper,
		dedupeTTL: 24 * time.Hour,
		logger:    util.GetLogger(),
	}
}

// HandleEvent applies at most one state transition for a webhook
// event. The caller has already authenticated the delivery against
// the raw body. Unknown event kinds are acknowledged and ignored.
func (s *SettlementService) HandleEvent(ctx context.Context, event *gateway.WebhookEvent, eventID string) error {
	ctx, span := util.StartSpan(ctx, "SettlementService.HandleEvent")
	defer span.End()

	switch event.Event {
	case gateway.EventPaymentCaptured:
		return s.handleCaptured(ctx, &event.Payload.Payment.Entity, eventID)
	case gateway.EventPaymentFailed:
		return s.handleFailed(ctx, &event.Payload.Payment.Entity)
	default:
		s.logger.Debug("Ignoring webhook event", zap.String("event", event.Event))
		util.WebhookEventsTotal.WithLabelValues(event.Event, "ignored").Inc()
		return nil
	}
}

// handleCaptured transitions a pending reservation to CONFIRMED,
// merging the capture details. A reservation that is already confirmed
// makes the delivery a no-op; an unmatched order is acknowledged and
// logged for manual reconciliation.
func (s *SettlementService) handleCaptured(ctx context.Context, entity *gateway.PaymentEntity, eventID string) error {
	if entity.OrderID == "" {
		s.logger.Warn("Capture event carries no order id, acknowledging without transition",
			zap.String("payment_id", entity.ID))
		util.WebhookEventsTotal.WithLabelValues(gateway.EventPaymentCaptured, "unmatched").Inc()
		return nil
	}

	if eventID != "" && s.deduper != nil {
		seen, err := s.deduper.SeenDelivery(ctx, eventID)
		if err != nil {
			s.logger.Warn("Event dedupe check failed, relying on store guard",
				zap.String("event_id", eventID),
				zap.Error(err))
		} else if seen {
			s.logger.Info("Duplicate webhook delivery, skipping",
				zap.String("event_id", eventID),
				zap.String("order_id", entity.OrderID))
			util.WebhookEventsTotal.WithLabelValues(gateway.EventPaymentCaptured, "duplicate").Inc()
			return nil
		}
	}

	capturedAt := time.Unix(entity.CreatedAt, 0).UTC()
	amountPaid := float64(entity.Amount) / 100

	applied, err := s.store.ConfirmPayment(ctx, entity.OrderID, entity.ID, amountPaid, entity.Currency, capturedAt)
	if err != nil {
		// Not marked delivered: the gateway retry must reach the store.
		return fmt.Errorf("confirm payment for order %s: %w", entity.OrderID, err)
	}

	if !applied {
		if err := s.explainUnapplied(ctx, entity.OrderID); err != nil {
			return err
		}
		s.markDelivered(ctx, eventID)
		return nil
	}

	util.BookingsConfirmedTotal.Inc()
	util.WebhookEventsTotal.WithLabelValues(gateway.EventPaymentCaptured, "applied").Inc()
	s.logger.Info("Reservation confirmed",
		zap.String("order_id", entity.OrderID),
		zap.String("payment_id", entity.ID),
		zap.Float64("amount_paid", amountPaid))

	s.publishConfirmed(ctx, entity, amountPaid)
	s.markDelivered(ctx, eventID)
	return nil
}

// markDelivered records the event id in the dedupe cache once the
// transition is durable. Failures only cost the fast path.
func (s *SettlementService) markDelivered(ctx context.Context, eventID string) {
	if eventID == "" || s.deduper == nil {
		return
	}
	if err := s.deduper.MarkDelivered(ctx, eventID, s.dedupeTTL); err != nil {
		s.logger.Warn("Failed to record webhook event id",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
}

// explainUnapplied distinguishes the benign reasons a capture event
// affected no rows: duplicate delivery of an already-confirmed
// reservation, a reservation in another terminal state, or an order we
// have no record of. All three are acknowledged, not retried.
func (s *SettlementService) explainUnapplied(ctx context.Context, orderID string) error {
	reservation, err := s.store.GetReservationByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperr.ErrReservationNotFound) {
			s.logger.Warn("Webhook for unknown order, acknowledging for manual reconciliation",
				zap.String("order_id", orderID))
			util.WebhookEventsTotal.WithLabelValues(gateway.EventPaymentCaptured, "unmatched").Inc()
			return nil
		}
		return err
	}

	if reservation.Status == models.StatusConfirmed {
		s.logger.Info("Reservation already confirmed, duplicate delivery",
			zap.String("order_id", orderID),
			zap.Int64("reservation_id", reservation.ID))
		util.WebhookEventsTotal.WithLabelValues(gateway.EventPaymentCaptured, "duplicate").Inc()
		return nil
	}

	s.logger.Warn("Capture event for settled reservation, no transition",
		zap.String("order_id", orderID),
		zap.String("status", reservation.Status))
	util.WebhookEventsTotal.WithLabelValues(gateway.EventPaymentCaptured, "stale").Inc()
	return nil
}

// handleFailed transitions a pending reservation to PAYMENT_FAILED.
// The store guard means a stale failure never overwrites a confirmed
// reservation, whatever order the gateway delivers events in.
func (s *SettlementService) handleFailed(ctx context.Context, entity *gateway.PaymentEntity) error {
	if entity.OrderID == "" {
		s.logger.Warn("Failure event carries no order id, acknowledging without transition",
			zap.String("payment_id", entity.ID))
		util.WebhookEventsTotal.WithLabelValues(gateway.EventPaymentFailed, "unmatched").Inc()
		return nil
	}

	reason := entity.ErrorDescription
	if reason == "" {
		reason = "payment failed at gateway"
	}

	applied, err := s.store.FailPayment(ctx, entity.OrderID, reason)
	if err != nil {
		return fmt.Errorf("fail payment for order %s: %w", entity.OrderID, err)
	}

	if !applied {
		s.logger.Info("Failure event affected no reservation, acknowledging",
			zap.String("order_id", entity.OrderID))
		util.WebhookEventsTotal.WithLabelValues(gateway.EventPaymentFailed, "noop").Inc()
		return nil
	}

	util.WebhookEventsTotal.WithLabelValues(gateway.EventPaymentFailed, "applied").Inc()
	s.logger.Info("Reservation payment failed",
		zap.String("order_id", entity.OrderID),
		zap.String("reason", reason))

	s.publishFailed(ctx, entity, reason)
	return nil
}

func (s *SettlementService) publishConfirmed(ctx context.Context, entity *gateway.PaymentEntity, amountPaid float64) {
	if s.publisher == nil {
		return
	}

	reservation, err := s.store.GetReservationByOrderID(ctx, entity.OrderID)
	if err != nil {
		s.logger.Error("Failed to load reservation for event publishing", zap.Error(err))
		return
	}

	event := &models.BookingConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingConfirmed,
			Timestamp: time.Now(),
		},
		ReservationID: reservation.ID,
		RenterRef:     reservation.RenterRef,
		OrderID:       entity.OrderID,
		PaymentID:     entity.ID,
		AmountPaid:    amountPaid,
		Currency:      entity.Currency,
	}

	if err := s.publisher.PublishBookingConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingConfirmed event", zap.Error(err))
	}
}

func (s *SettlementService) publishFailed(ctx context.Context, entity *gateway.PaymentEntity, reason string) {
	if s.publisher == nil {
		return
	}

	reservation, err := s.store.GetReservationByOrderID(ctx, entity.OrderID)
	if err != nil {
		s.logger.Error("Failed to load reservation for event publishing", zap.Error(err))
		return
	}

	event := &models.BookingPaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingPaymentFailed,
			Timestamp: time.Now(),
		},
		ReservationID: reservation.ID,
		RenterRef:     reservation.RenterRef,
		OrderID:       entity.OrderID,
		Reason:        reason,
	}

	if err := s.publisher.PublishBookingPaymentFailed(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingPaymentFailed event", zap.Error(err))
	}
}
