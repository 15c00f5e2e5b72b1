package handlers

import (
	"context"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/api-gateway/internal/clients"
)

type GroupCanceller interface {
	CancelGroup(ctx context.Context, groupID int64) (*clients.Reply, error)
}

type BookingHandler struct {
	booking Doer
	saga    GroupCanceller
	log     logrus.FieldLogger
}

func NewBookingHandler(booking Doer, saga GroupCanceller, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{booking: booking, saga: saga, log: log}
}

// GET /api/bookings/available_slots?facilityId&date
func (h *BookingHandler) AvailableSlots(c *gin.Context) {
	forward(c, h.log, h.booking, "available_slots", "/get_available_slots", pick(c, "facilityId", "date"))
}

// GET /api/bookings/user?userId
func (h *BookingHandler) ByUser(c *gin.Context) {
	forward(c, h.log, h.booking, "by_user", "/user", pick(c, "userId"))
}

// GET /api/bookings/:bookingId
func (h *BookingHandler) Get(c *gin.Context) {
	forward(c, h.log, h.booking, "get", "/"+url.PathEscape(c.Param("bookingId")), nil)
}

// DELETE /api/bookings/cancel-group?bookingGroupId
func (h *BookingHandler) CancelGroup(c *gin.Context) {
	id, ok := int64Query(c, "bookingGroupId")
	if !ok {
		return
	}
	rep, err := h.saga.CancelGroup(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	writeReply(c, rep)
}
