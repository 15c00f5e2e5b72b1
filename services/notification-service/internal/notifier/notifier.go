package notifier

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/notification-service/internal/render"
)

// Notifier delivers one rendered message. Email/LINE/SMS senders plug in here.
type Notifier interface {
	Notify(ctx context.Context, m render.Message) error
}

// Console writes notifications to the service log.
type Console struct {
	log logrus.FieldLogger
}

func NewConsole(log logrus.FieldLogger) *Console {
	return &Console{log: log}
}

func (c *Console) Notify(_ context.Context, m render.Message) error {
	entry := c.log.WithField("subject", m.Subject)
	if m.UserID != 0 {
		entry = entry.WithField("user_id", m.UserID)
	}
	entry.Info(m.Body)
	return nil
}
