package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/payment-service/internal/domain"
	"github.com/pitchplease/facility-booking/services/payment-service/internal/strategy"
)

type PaymentService interface {
	Create(ctx context.Context, in domain.CreatePaymentRequest) (*domain.Payment, error)
	Get(ctx context.Context, id int64) (*domain.Payment, error)
	ByBookingGroup(ctx context.Context, groupID int64) (*domain.Payment, error)
	ByUser(ctx context.Context, userID int64) ([]domain.Payment, error)
	ByFacility(ctx context.Context, facilityID int64) ([]domain.Payment, error)
	Methods() []string
	UpdateStatus(ctx context.Context, id int64, raw string) (*domain.Payment, error)
	Refund(ctx context.Context, id int64) (*domain.Payment, error)
	UpdateStatusByBookingGroup(ctx context.Context, groupID int64, raw string) (int64, error)
	UpdateStatusByFacility(ctx context.Context, facilityID int64, raw string) (int64, error)
}

type Server struct {
	svc PaymentService
	log logrus.FieldLogger
}

func NewServer(svc PaymentService, log logrus.FieldLogger) *Server {
	return &Server{svc: svc, log: log}
}

func (s *Server) Register(r gin.IRouter) {
	r.POST("/create", s.create)
	r.GET("/methods", s.methods)
	r.GET("/booking/:bookingGroupId", s.byBookingGroup)
	r.GET("/user/:userId", s.byUser)
	r.GET("/facility/:facilityId", s.byFacility)
	r.GET("/:paymentId", s.get)
	r.PUT("/:paymentId/status", s.updateStatus)
	r.POST("/:paymentId/refund", s.refund)
	r.PUT("/update_status_by_bookingID", s.updateByBookingGroup)
	r.PUT("/update_status_by_facilityId", s.updateByFacility)
}

func (s *Server) create(c *gin.Context) {
	var in domain.CreatePaymentRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := s.svc.Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, "Failed to process payment", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) methods(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Methods())
}

func (s *Server) get(c *gin.Context) {
	id, ok := int64Param(c, "paymentId")
	if !ok {
		return
	}
	p, err := s.svc.Get(c.Request.Context(), id)
	s.one(c, p, err)
}

func (s *Server) byBookingGroup(c *gin.Context) {
	id, ok := int64Param(c, "bookingGroupId")
	if !ok {
		return
	}
	p, err := s.svc.ByBookingGroup(c.Request.Context(), id)
	s.one(c, p, err)
}

func (s *Server) byUser(c *gin.Context) {
	id, ok := int64Param(c, "userId")
	if !ok {
		return
	}
	out, err := s.svc.ByUser(c.Request.Context(), id)
	s.list(c, out, err)
}

func (s *Server) byFacility(c *gin.Context) {
	id, ok := int64Param(c, "facilityId")
	if !ok {
		return
	}
	out, err := s.svc.ByFacility(c.Request.Context(), id)
	s.list(c, out, err)
}

func (s *Server) updateStatus(c *gin.Context) {
	id, ok := int64Param(c, "paymentId")
	if !ok {
		return
	}
	p, err := s.svc.UpdateStatus(c.Request.Context(), id, c.Query("newStatus"))
	s.one(c, p, err)
}

func (s *Server) refund(c *gin.Context) {
	id, ok := int64Param(c, "paymentId")
	if !ok {
		return
	}
	p, err := s.svc.Refund(c.Request.Context(), id)
	s.one(c, p, err)
}

func (s *Server) updateByBookingGroup(c *gin.Context) {
	id, ok := int64Query(c, "bookingId")
	if !ok {
		return
	}
	status := c.Query("status")
	n, err := s.svc.UpdateStatusByBookingGroup(c.Request.Context(), id, status)
	if err != nil {
		s.fail(c, "Failed to update payment status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Payment status update completed",
		"updatedCount": n,
		"bookingId":    id,
		"newStatus":    status,
	})
}

func (s *Server) updateByFacility(c *gin.Context) {
	id, ok := int64Query(c, "facilityId")
	if !ok {
		return
	}
	status := c.Query("status")
	n, err := s.svc.UpdateStatusByFacility(c.Request.Context(), id, status)
	if err != nil {
		s.fail(c, "Failed to update payment status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Payment status update completed",
		"updatedCount": n,
		"facilityId":   id,
		"newStatus":    status,
	})
}

func (s *Server) one(c *gin.Context, p *domain.Payment, err error) {
	if err != nil {
		s.fail(c, "Failed to fetch payment", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) list(c *gin.Context, out []domain.Payment, err error) {
	if err != nil {
		s.fail(c, "Failed to fetch payments", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) fail(c *gin.Context, what string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, strategy.ErrUnsupportedMethod):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.log.WithError(err).WithField("path", c.FullPath()).Error(what)
		c.JSON(http.StatusInternalServerError, gin.H{"error": what + ": " + err.Error()})
	}
}

func int64Query(c *gin.Context, key string) (int64, bool) {
	return parseInt64(c, key, c.Query(key))
}

func int64Param(c *gin.Context, key string) (int64, bool) {
	return parseInt64(c, key, c.Param(key))
}

func parseInt64(c *gin.Context, key, raw string) (int64, bool) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return v, true
}
