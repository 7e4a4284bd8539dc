package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brpay/pix-gateway/internal/core/events"
	"github.com/brpay/pix-gateway/internal/user"
)

// UserGetter resolves the recipient for a notification.
type UserGetter interface {
	GetByID(id int64) (*user.User, error)
}

// EventHandler turns settlement lifecycle events into email receipts. It runs
// on the event bus, so a mail failure is logged and never blocks settlement.
type EventHandler struct {
	mailer *Mailer
	users  UserGetter
	logger *slog.Logger
}

func NewEventHandler(mailer *Mailer, users UserGetter, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		mailer: mailer,
		users:  users,
		logger: logger,
	}
}

func (h *EventHandler) HandleTransactionSettled(ctx context.Context, event events.Event) error {
	settledEvent, ok := event.(*events.TransactionSettledEvent)
	if !ok {
		h.logger.Error("invalid event type for settled handler", "event_type", event.EventType())
		return fmt.Errorf("expected TransactionSettledEvent, got %T", event)
	}

	recipient, err := h.users.GetByID(settledEvent.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient for user %d: %w", settledEvent.UserID, err)
	}

	subject := "Pagamento PIX confirmado"
	body := fmt.Sprintf("Olá %s,\n\nSeu pagamento PIX de R$ %s foi confirmado.\nTransação: %s\n",
		recipient.Name, settledEvent.Amount.StringFixed(2), settledEvent.TransactionID)

	return h.mailer.Send(ctx, recipient.Email, subject, body)
}

func (h *EventHandler) HandleTransactionFailed(ctx context.Context, event events.Event) error {
	failedEvent, ok := event.(*events.TransactionFailedEvent)
	if !ok {
		h.logger.Error("invalid event type for failed handler", "event_type", event.EventType())
		return fmt.Errorf("expected TransactionFailedEvent, got %T", event)
	}

	recipient, err := h.users.GetByID(failedEvent.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient for user %d: %w", failedEvent.UserID, err)
	}

	subject := "Pagamento PIX não concluído"
	body := fmt.Sprintf("Olá %s,\n\nSeu pagamento PIX não foi concluído: %s.\nTransação: %s\n",
		recipient.Name, failedEvent.FailureReason, failedEvent.TransactionID)

	return h.mailer.Send(ctx, recipient.Email, subject, body)
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeTransactionSettled, h.HandleTransactionSettled)
	eventBus.Subscribe(events.EventTypeTransactionFailed, h.HandleTransactionFailed)

	h.logger.Info("notification event handlers registered",
		"handlers", []string{events.EventTypeTransactionSettled, events.EventTypeTransactionFailed})
}
