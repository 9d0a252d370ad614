// Package notify is the boundary to the platform's notification service.
// This implementation only logs; the real dispatcher is a separate system
// and a lost notification must never affect a payment transition.
package notify

import (
	"context"
	"log/slog"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/domain"
)

type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) application.Notifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) PaymentCompleted(ctx context.Context, record *domain.PaymentRecord) {
	n.logger.Info("dispatching payment completed notification",
		"payment_id", record.ID,
		"appointment_id", record.AppointmentID,
		"patient_id", record.PatientID,
	)
}

func (n *LogNotifier) PaymentFailed(ctx context.Context, record *domain.PaymentRecord) {
	n.logger.Info("dispatching payment failed notification",
		"payment_id", record.ID,
		"appointment_id", record.AppointmentID,
	)
}

func (n *LogNotifier) PaymentRefunded(ctx context.Context, record *domain.PaymentRecord) {
	n.logger.Info("dispatching payment refunded notification",
		"payment_id", record.ID,
		"appointment_id", record.AppointmentID,
	)
}
