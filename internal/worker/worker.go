package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/config"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/broker"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/jobqueue"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/notifier"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
)

// NotificationWorker consumes settlement events and turns them into delayed
// email jobs. It never blocks or fails a settlement: a scheduling error is
// logged and counted, and the message is still committed.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	queue        jobqueue.Queue
	mailCfg      config.MailConfig
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(
	consumer *broker.Consumer,
	queue jobqueue.Queue,
	mailCfg config.MailConfig,
) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		queue:    queue,
		mailCfg:  mailCfg,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentCompleted(w.handlePaymentCompleted)
	eventHandler.OnPaymentFailed(w.handlePaymentFailed)
	eventHandler.OnBookingRefunded(w.handleBookingRefunded)
	w.eventHandler = eventHandler

	return w
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

func (w *NotificationWorker) schedule(ctx context.Context, delay time.Duration, job jobqueue.EmailJob) error {
	if job.To == "" {
		w.logger.Debug("Skipping email without recipient",
			zap.String("kind", job.Kind),
			zap.String("reference", job.Reference))
		return nil
	}

	jobID, err := w.queue.ScheduleEmail(ctx, delay, job)
	if err != nil {
		util.EmailJobsFailedTotal.Inc()
		w.logger.Error("Failed to schedule email",
			zap.String("kind", job.Kind),
			zap.String("reference", job.Reference),
			zap.Error(err))
		return nil
	}

	util.EmailJobsScheduledTotal.Inc()
	w.logger.Info("Scheduled email",
		zap.String("kind", job.Kind),
		zap.String("job_id", jobID),
		zap.String("reference", job.Reference),
		zap.Duration("delay", delay))
	return nil
}

func (w *NotificationWorker) handlePaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error {
	confirmDelay := time.Duration(w.mailCfg.ConfirmationDelaySeconds) * time.Second
	receiptDelay := time.Duration(w.mailCfg.ReceiptDelaySeconds) * time.Second

	if err := w.schedule(ctx, confirmDelay, notifier.BuildConfirmation(event)); err != nil {
		return err
	}
	return w.schedule(ctx, receiptDelay, notifier.BuildReceipt(event))
}

func (w *NotificationWorker) handlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	return w.schedule(ctx, 0, notifier.BuildPaymentFailure(event))
}

func (w *NotificationWorker) handleBookingRefunded(ctx context.Context, event *models.BookingRefundedEvent) error {
	return w.schedule(ctx, 0, notifier.BuildRefundNotice(event))
}
