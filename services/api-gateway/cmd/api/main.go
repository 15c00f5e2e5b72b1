package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pitchplease/facility-booking/pkg/config"
	"github.com/pitchplease/facility-booking/pkg/obs"
	"github.com/pitchplease/facility-booking/services/api-gateway/internal/clients"
	"github.com/pitchplease/facility-booking/services/api-gateway/internal/handlers"
	"github.com/pitchplease/facility-booking/services/api-gateway/internal/middlewares"
	"github.com/pitchplease/facility-booking/services/api-gateway/internal/saga"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.WithError(err).Fatal("api-gateway startup")
	}
	return v
}

var log = obs.NewLogger("api-gateway")

func main() {
	var cfg config.Gateway
	must(0, config.Load(&cfg))

	shutdownTracer := must(obs.InitTracer("api-gateway"))
	defer func() { _ = shutdownTracer(context.Background()) }()

	authC := clients.New("auth", cfg.AuthURL, cfg.DownstreamTimeout)
	bookingC := clients.New("booking", cfg.BookingURL, cfg.DownstreamTimeout)
	paymentC := clients.New("payment", cfg.PaymentURL, cfg.DownstreamTimeout)
	facilityC := clients.New("facility", cfg.FacilityURL, cfg.DownstreamTimeout)

	orch := saga.New(
		clients.NewBooking(bookingC),
		clients.NewPayment(paymentC),
		clients.NewFacility(facilityC),
		cfg.DownstreamTimeout,
		log,
	)
	if !cfg.AuthStrict {
		log.Warn("AUTH_STRICT=false: protected requests without a bearer token are forwarded")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), obs.GinLogger(log))
	handlers.Routes{
		Gate:     middlewares.AuthGate(clients.NewAuth(authC), cfg.PublicPaths, cfg.AuthStrict, log),
		Auth:     handlers.NewAuthHandler(authC, log),
		Booking:  handlers.NewBookingHandler(bookingC, orch, log),
		Payment:  handlers.NewPaymentHandler(paymentC, orch, log),
		Facility: handlers.NewFacilityHandler(facilityC, orch, log),
	}.Mount(r)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("api-gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("api-gateway stopped")
}
