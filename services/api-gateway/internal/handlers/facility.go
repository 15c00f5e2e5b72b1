package handlers

import (
	"context"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pitchplease/facility-booking/services/api-gateway/internal/clients"
)

type FacilityDeleter interface {
	DeleteFacility(ctx context.Context, facilityID int64) (*clients.Reply, error)
}

type FacilityHandler struct {
	facility Doer
	saga     FacilityDeleter
	log      logrus.FieldLogger
}

func NewFacilityHandler(facility Doer, saga FacilityDeleter, log logrus.FieldLogger) *FacilityHandler {
	return &FacilityHandler{facility: facility, saga: saga, log: log}
}

// GET /api/facilities
func (h *FacilityHandler) List(c *gin.Context) {
	forward(c, h.log, h.facility, "list", "/all", nil)
}

// GET /api/facilities/search?city&facilityType&minPrice&maxPrice
func (h *FacilityHandler) Search(c *gin.Context) {
	forward(c, h.log, h.facility, "search", "/search", pick(c, "city", "facilityType", "minPrice", "maxPrice", "page", "size"))
}

// GET /api/facilities/owner?userId
func (h *FacilityHandler) ByOwner(c *gin.Context) {
	forward(c, h.log, h.facility, "by_owner", "/user_facilities", pick(c, "userId"))
}

// GET /api/facilities/:id
func (h *FacilityHandler) Get(c *gin.Context) {
	forward(c, h.log, h.facility, "get", "/"+url.PathEscape(c.Param("id")), nil)
}

// POST /api/facilities (OWNER/ADMIN)
func (h *FacilityHandler) Create(c *gin.Context) {
	forward(c, h.log, h.facility, "create", "/create", nil)
}

// PUT /api/facilities (OWNER/ADMIN)
func (h *FacilityHandler) Update(c *gin.Context) {
	forward(c, h.log, h.facility, "update", "/update", nil)
}

// DELETE /api/facilities/delete?facilityId (OWNER/ADMIN)
func (h *FacilityHandler) Delete(c *gin.Context) {
	id, ok := int64Query(c, "facilityId")
	if !ok {
		return
	}
	rep, err := h.saga.DeleteFacility(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	writeReply(c, rep)
}
