package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/appointment"
)

// EmailNotifier renders the message for the event kind and mails it to the
// recipient.
type EmailNotifier struct {
	mailer   Mailer
	renderer *Renderer
	logger   *zap.Logger
}

func NewEmailNotifier(mailer Mailer, renderer *Renderer, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{mailer: mailer, renderer: renderer, logger: logger}
}

func (n *EmailNotifier) Notify(ctx context.Context, kind appointment.NotificationKind, v *appointment.View, to appointment.Recipient, extra map[string]string) bool {
	log := n.logger.With(
		zap.String("appointment_id", v.ID.String()),
		zap.String("kind", string(kind)),
		zap.String("role", string(to.Role)),
	)

	msg, err := n.renderer.Render(string(kind), n.renderer.Data(v, to.Name, extra))
	if err != nil {
		log.Error("render notification", zap.Error(err))
		return false
	}
	if err := n.mailer.Send(ctx, to.Email, msg.Subject, msg.Body); err != nil {
		log.Warn("send notification email", zap.Error(err))
		return false
	}
	log.Debug("notification email sent")
	return true
}
