package worker

import (
	"context"

	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// Notifier delivers booking outcome notifications to renters. The
// actual channel (email, SMS) lives behind this interface.
type Notifier interface {
	NotifyBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error
	NotifyBookingPaymentFailed(ctx context.Context, event *models.BookingPaymentFailedEvent) error
}

// LogNotifier records notifications in the log. Stands in until an
// outbound delivery channel is wired up.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a logging notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

func (n *LogNotifier) NotifyBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error {
	n.logger.Info("Booking confirmation notification",
		zap.Int64("reservation_id", event.ReservationID),
		zap.String("renter_ref", event.RenterRef),
		zap.Float64("amount_paid", event.AmountPaid))
	return nil
}

func (n *LogNotifier) NotifyBookingPaymentFailed(ctx context.Context, event *models.BookingPaymentFailedEvent) error {
	n.logger.Info("Booking payment failure notification",
		zap.Int64("reservation_id", event.ReservationID),
		zap.String("renter_ref", event.RenterRef),
		zap.String("reason", event.Reason))
	return nil
}

// NotificationWorker consumes booking lifecycle events and dispatches
// renter notifications.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, notifier Notifier) *NotificationWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnBookingConfirmed(notifier.NotifyBookingConfirmed)
	eventHandler.OnBookingPaymentFailed(notifier.NotifyBookingPaymentFailed)

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}
