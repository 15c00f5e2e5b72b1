package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pitchplease/facility-booking/services/api-gateway/internal/middlewares"
)

type Routes struct {
	Gate     gin.HandlerFunc
	Auth     *AuthHandler
	Booking  *BookingHandler
	Payment  *PaymentHandler
	Facility *FacilityHandler
}

// Mount wires the /api surface behind the gate. /healthz and /metrics stay
// outside it.
func (rt Routes) Mount(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(rt.Gate)

	auth := api.Group("/auth")
	auth.POST("/register", rt.Auth.Register)
	auth.POST("/login", rt.Auth.Login)
	auth.POST("/refresh_token", rt.Auth.Refresh)
	auth.POST("/logout", rt.Auth.Logout)

	b := api.Group("/bookings")
	b.GET("/available_slots", rt.Booking.AvailableSlots)
	b.GET("/user", rt.Booking.ByUser)
	b.DELETE("/cancel-group", rt.Booking.CancelGroup)
	b.GET("/:bookingId", rt.Booking.Get)

	p := api.Group("/payments")
	p.POST("/create", rt.Payment.Create)
	p.GET("/methods", rt.Payment.Methods)
	p.GET("/user/:userId", rt.Payment.ByUser)
	p.GET("/facility/:facilityId", rt.Payment.ByFacility)

	f := api.Group("/facilities")
	f.GET("", rt.Facility.List)
	f.GET("/search", rt.Facility.Search)
	f.GET("/owner", rt.Facility.ByOwner)
	f.GET("/:id", rt.Facility.Get)
	owner := middlewares.RequireRole("OWNER", "ADMIN")
	f.POST("", owner, rt.Facility.Create)
	f.PUT("", owner, rt.Facility.Update)
	f.DELETE("/delete", owner, rt.Facility.Delete)
}
