package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/api-gateway/internal/saga"
)

type BookingPayer interface {
	Create(ctx context.Context, req saga.CreateRequest) (saga.Combined, error)
}

type PaymentHandler struct {
	payment Doer
	saga    BookingPayer
	log     logrus.FieldLogger
}

func NewPaymentHandler(payment Doer, saga BookingPayer, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{payment: payment, saga: saga, log: log}
}

// POST /api/payments/create
func (h *PaymentHandler) Create(c *gin.Context) {
	var in saga.CreateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.saga.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// GET /api/payments/user/:userId
func (h *PaymentHandler) ByUser(c *gin.Context) {
	forward(c, h.log, h.payment, "by_user", "/user/"+url.PathEscape(c.Param("userId")), nil)
}

// GET /api/payments/facility/:facilityId
func (h *PaymentHandler) ByFacility(c *gin.Context) {
	forward(c, h.log, h.payment, "by_facility", "/facility/"+url.PathEscape(c.Param("facilityId")), nil)
}

// GET /api/payments/methods
func (h *PaymentHandler) Methods(c *gin.Context) {
	forward(c, h.log, h.payment, "methods", "/methods", nil)
}
