package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/facility-service/internal/domain"
)

type FacilityService interface {
	Create(ctx context.Context, f *domain.Facility) (*domain.Facility, error)
	Get(ctx context.Context, id int64) (*domain.Facility, error)
	List(ctx context.Context, q domain.Search) ([]domain.Facility, error)
	ByOwner(ctx context.Context, ownerID int64) ([]domain.Facility, error)
	Update(ctx context.Context, f *domain.Facility) (*domain.Facility, error)
	Delete(ctx context.Context, id int64) error
}

type Server struct {
	svc FacilityService
	log logrus.FieldLogger
}

func NewServer(svc FacilityService, log logrus.FieldLogger) *Server {
	return &Server{svc: svc, log: log}
}

func (s *Server) Register(r gin.IRouter) {
	r.GET("/all", s.list)
	r.GET("/search", s.list)
	r.GET("/user_facilities", s.byOwner)
	r.GET("/:id", s.get)
	r.POST("/create", s.create)
	r.PUT("/update", s.update)
	r.DELETE("/delete", s.delete)
}

func (s *Server) create(c *gin.Context) {
	var in domain.Facility
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := s.svc.Create(c.Request.Context(), &in)
	if err != nil {
		s.fail(c, "Failed to create facility", err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// list serves both /all and /search; /all simply carries no filters.
func (s *Server) list(c *gin.Context) {
	q := domain.Search{City: c.Query("city"), FacilityType: c.Query("facilityType")}
	var ok bool
	if q.MinPrice, ok = priceQuery(c, "minPrice"); !ok {
		return
	}
	if q.MaxPrice, ok = priceQuery(c, "maxPrice"); !ok {
		return
	}
	if q.Page, ok = intQuery(c, "page"); !ok {
		return
	}
	if q.Size, ok = intQuery(c, "size"); !ok {
		return
	}
	out, err := s.svc.List(c.Request.Context(), q)
	if err != nil {
		s.fail(c, "Failed to fetch facilities", err)
		return
	}
	c.JSON(http.StatusOK, nonNil(out))
}

func (s *Server) byOwner(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}
	out, err := s.svc.ByOwner(c.Request.Context(), ownerID)
	if err != nil {
		s.fail(c, "Failed to fetch facilities", err)
		return
	}
	c.JSON(http.StatusOK, nonNil(out))
}

func (s *Server) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	f, err := s.svc.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "Failed to fetch facility", err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) update(c *gin.Context) {
	var in domain.Facility
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := s.svc.Update(c.Request.Context(), &in)
	if err != nil {
		s.fail(c, "Failed to update facility", err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("facilityId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid facilityId"})
		return
	}
	if err := s.svc.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, "Failed to delete facility", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Facility deleted", "facilityId": id})
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

func priceQuery(c *gin.Context, key string) (*decimal.Decimal, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return nil, false
	}
	return &d, true
}

func intQuery(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return v, true
}

func nonNil(in []domain.Facility) []domain.Facility {
	if in == nil {
		return []domain.Facility{}
	}
	return in
}
