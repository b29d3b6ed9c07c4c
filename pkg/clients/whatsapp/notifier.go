package whatsapp

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ReportNotifier sends text reports to a single configured recipient.
type ReportNotifier struct {
	client    Client
	recipient string
	logger    *zap.Logger
}

// NewReportNotifier builds a notifier delivering to recipient through client.
func NewReportNotifier(client Client, recipient string, logger *zap.Logger) *ReportNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportNotifier{client: client, recipient: recipient, logger: logger}
}

// Notify sends message as a WhatsApp text.
func (n *ReportNotifier) Notify(ctx context.Context, message string) error {
	if n.recipient == "" {
		return errors.New("whatsapp recipient is not configured")
	}
	resp, err := n.client.SendTextMessage(ctx, SendTextMessageRequest{To: n.recipient, Body: message})
	if err != nil {
		return err
	}
	if len(resp.Messages) > 0 {
		n.logger.Debug("report message sent", zap.String("message_id", resp.Messages[0].ID))
	}
	return nil
}
