package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/booking-service/internal/domain"
)

type BookingService interface {
	CreateGroup(ctx context.Context, req domain.CreateGroupRequest) (*domain.Group, error)
	CancelGroup(ctx context.Context, groupID int64) (int64, error)
	AvailableSlots(ctx context.Context, facilityID int64, date string) ([]domain.AvailabilitySlot, error)
	IsAvailable(ctx context.Context, facilityID int64, start, end time.Time) (bool, error)
	Get(ctx context.Context, id int64) (*domain.BookingSlot, error)
	All(ctx context.Context) ([]domain.BookingSlot, error)
	ByUser(ctx context.Context, userID int64) ([]domain.BookingSlot, error)
	ByFacility(ctx context.Context, facilityID int64) ([]domain.BookingSlot, error)
	ByUserAndStatus(ctx context.Context, userID int64, status string) ([]domain.BookingSlot, error)
	ByGroup(ctx context.Context, groupID int64) ([]domain.BookingSlot, error)
}

type Server struct {
	svc BookingService
	log logrus.FieldLogger
}

func NewServer(svc BookingService, log logrus.FieldLogger) *Server {
	return &Server{svc: svc, log: log}
}

func (s *Server) Register(r gin.IRouter) {
	r.GET("/get_available_slots", s.availableSlots)
	r.GET("/is_available", s.isAvailable)
	r.GET("/all", s.all)
	r.GET("/user", s.byUser)
	r.GET("/user/:userId/status/:status", s.byUserAndStatus)
	r.GET("/facility/:facilityId", s.byFacility)
	r.GET("/group/:groupId", s.byGroup)
	r.GET("/:id", s.get)
	r.POST("/create", s.create)
	r.DELETE("/cancel-group", s.cancelGroup)
}

func (s *Server) create(c *gin.Context) {
	var in domain.CreateGroupRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, err := s.svc.CreateGroup(c.Request.Context(), in)
	if err != nil {
		s.fail(c, "Failed to create booking", err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (s *Server) cancelGroup(c *gin.Context) {
	groupID, ok := int64Query(c, "bookingGroupId")
	if !ok {
		return
	}
	n, err := s.svc.CancelGroup(c.Request.Context(), groupID)
	if err != nil {
		s.fail(c, "Failed to cancel booking group", err)
		return
	}
	status := "cancelled"
	if n == 0 {
		status = "not_found"
	}
	c.JSON(http.StatusOK, gin.H{
		"bookingGroupId": groupID,
		"cancelledCount": n,
		"status":         status,
	})
}

func (s *Server) availableSlots(c *gin.Context) {
	facilityID, ok := int64Query(c, "facilityId")
	if !ok {
		return
	}
	date := c.Query("date")
	slots, err := s.svc.AvailableSlots(c.Request.Context(), facilityID, date)
	if err != nil {
		s.fail(c, "Failed to fetch available time slots", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"facilityId":     facilityID,
		"date":           date,
		"availableSlots": slots,
	})
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

func parseWallClock(v string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (s *Server) isAvailable(c *gin.Context) {
	facilityID, ok := int64Query(c, "facilityId")
	if !ok {
		return
	}
	start, ok1 := parseWallClock(c.Query("start"))
	end, ok2 := parseWallClock(c.Query("end"))
	if !ok1 || !ok2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end must be ISO date-times"})
		return
	}
	free, err := s.svc.IsAvailable(c.Request.Context(), facilityID, start, end)
	if err != nil {
		s.fail(c, "Failed to check availability", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facilityId": facilityID, "available": free})
}

func (s *Server) get(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	b, err := s.svc.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "Failed to fetch booking", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) all(c *gin.Context) {
	out, err := s.svc.All(c.Request.Context())
	s.list(c, out, err)
}

func (s *Server) byUser(c *gin.Context) {
	userID, ok := int64Query(c, "userId")
	if !ok {
		return
	}
	out, err := s.svc.ByUser(c.Request.Context(), userID)
	s.list(c, out, err)
}

func (s *Server) byUserAndStatus(c *gin.Context) {
	userID, ok := int64Param(c, "userId")
	if !ok {
		return
	}
	out, err := s.svc.ByUserAndStatus(c.Request.Context(), userID, c.Param("status"))
	s.list(c, out, err)
}

func (s *Server) byFacility(c *gin.Context) {
	facilityID, ok := int64Param(c, "facilityId")
	if !ok {
		return
	}
	out, err := s.svc.ByFacility(c.Request.Context(), facilityID)
	s.list(c, out, err)
}

func (s *Server) byGroup(c *gin.Context) {
	groupID, ok := int64Param(c, "groupId")
	if !ok {
		return
	}
	out, err := s.svc.ByGroup(c.Request.Context(), groupID)
	s.list(c, out, err)
}

func (s *Server) list(c *gin.Context, out []domain.BookingSlot, err error) {
	if err != nil {
		s.fail(c, "Failed to fetch bookings", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) fail(c *gin.Context, what string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
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
