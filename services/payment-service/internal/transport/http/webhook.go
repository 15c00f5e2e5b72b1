package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omise/omise-go"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/payment-service/internal/domain"
	omisecli "github.com/pitchplease/facility-booking/services/payment-service/internal/omise"
)

type Settler interface {
	SettleByTransaction(ctx context.Context, txID string, st domain.Status) (*domain.Payment, error)
}

// WebhookServer receives Omise event callbacks. The posted body is not
// trusted; only the event id is used to fetch the event back from Omise.
type WebhookServer struct {
	gw  omisecli.Gateway
	svc Settler
	log logrus.FieldLogger
}

func NewWebhookServer(gw omisecli.Gateway, svc Settler, log logrus.FieldLogger) *WebhookServer {
	return &WebhookServer{gw: gw, svc: svc, log: log}
}

func (s *WebhookServer) Register(r gin.IRouter) {
	r.POST("/webhooks/omise", s.handle)
}

type incomingEvent struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

func (s *WebhookServer) handle(c *gin.Context) {
	var inc incomingEvent
	if err := c.ShouldBindJSON(&inc); err != nil || inc.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	ev, err := s.gw.RetrieveEvent(inc.ID)
	if err != nil {
		s.log.WithError(err).WithField("event_id", inc.ID).Warn("webhook retrieve event")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	log := s.log.WithFields(logrus.Fields{"event_id": inc.ID, "event_key": ev.Key})

	if ev.Key != "charge.complete" {
		log.Debug("webhook event ignored")
		c.Status(http.StatusOK)
		return
	}

	// ev.Data is decoded generically; round-trip it into a Charge
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		log.WithError(err).Warn("webhook marshal event data")
		c.Status(http.StatusOK)
		return
	}
	var ch omise.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		log.WithError(err).Warn("webhook unmarshal charge")
		c.Status(http.StatusOK)
		return
	}

	st := omisecli.StatusFromCharge(&ch)
	p, err := s.svc.SettleByTransaction(c.Request.Context(), ch.ID, st)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.WithField("transaction_id", ch.ID).Warn("webhook for unknown charge")
	case err != nil:
		// non-2xx makes Omise redeliver
		log.WithError(err).Error("webhook settle")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	default:
		log.WithFields(logrus.Fields{"payment_id": p.PaymentID, "status": p.PaymentStatus}).Info("payment settled by webhook")
	}
	c.Status(http.StatusOK)
}
