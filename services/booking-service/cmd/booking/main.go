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
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/pitchplease/facility-booking/pkg/config"
	"github.com/pitchplease/facility-booking/pkg/db"
	"github.com/pitchplease/facility-booking/pkg/events"
	"github.com/pitchplease/facility-booking/pkg/mq"
	"github.com/pitchplease/facility-booking/pkg/obs"
	"github.com/pitchplease/facility-booking/services/booking-service/internal/availability"
	"github.com/pitchplease/facility-booking/services/booking-service/internal/consumer"
	"github.com/pitchplease/facility-booking/services/booking-service/internal/idgen"
	"github.com/pitchplease/facility-booking/services/booking-service/internal/repository"
	"github.com/pitchplease/facility-booking/services/booking-service/internal/service"
	thttp "github.com/pitchplease/facility-booking/services/booking-service/internal/transport/http"
)

type Cfg struct {
	PGBookingDSN    string `envconfig:"PG_BOOKING_DSN" required:"true"`
	BookingHTTPAddr string `envconfig:"BOOKING_HTTP_ADDR" default:":8082"`
	HourlyRate      string `envconfig:"BOOKING_HOURLY_RATE" default:"20"`
	NodeID          int    `envconfig:"BOOKING_NODE_ID" default:"0"`

	// optional: events are dropped when unset
	RabbitURL       string `envconfig:"RABBIT_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	PaymentExchange string `envconfig:"PAYMENT_EXCHANGE" default:"payment.exchange"`
	PaymentQueue    string `envconfig:"BOOKING_PAYMENT_QUEUE" default:"booking.payment.q"`

	// optional: availability is recomputed on every request when unset
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `envconfig:"AVAILABILITY_CACHE_TTL" default:"30s"`
}

func must[T any](v T, err error) T {
	if err != nil {
		log.WithError(err).Fatal("booking-service startup")
	}
	return v
}

var log = obs.NewLogger("booking-service")

func main() {
	var cfg Cfg
	must(0, config.Load(&cfg))

	shutdownTracer := must(obs.InitTracer("booking-service"))
	defer func() { _ = shutdownTracer(context.Background()) }()

	rate := must(decimal.NewFromString(cfg.HourlyRate))
	ids := must(idgen.New(cfg.NodeID))

	gdb := must(db.Open(cfg.PGBookingDSN, log))
	repo := repository.NewBookingRepo(gdb)
	must(0, repo.Migrate())

	var pub mq.EventPublisher = mq.Noop{}
	if cfg.RabbitURL != "" {
		p := must(mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange, "booking-service"))
		defer p.Close()
		pub = p
	} else {
		log.Warn("RABBIT_URL not set, booking events disabled")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, availability cache disabled")
			_ = rdb.Close()
			rdb = nil
		}
		cancel()
	}
	if rdb != nil {
		defer rdb.Close()
	}

	engine := availability.NewEngine(repo, availability.NewCache(rdb, cfg.CacheTTL, log), log)
	svc := service.NewBookingSvc(repo, ids, engine, pub, rate, log)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if cfg.RabbitURL != "" {
		cons := must(mq.NewConsumer(mq.ConsumerConfig{
			URL:       cfg.RabbitURL,
			Exchanges: []string{cfg.PaymentExchange},
			Queue:     cfg.PaymentQueue,
			Bindings:  []string{events.RKPaymentStatusUpdated},
			Tag:       "booking-service",
			DLX:       "booking.dlx",
			DLXQueue:  cfg.PaymentQueue + ".dlq",
		}))
		defer cons.Close()
		go func() {
			if err := consumer.NewPaymentConsumer(cons, svc, log).Run(ctx); err != nil {
				log.WithError(err).Error("payment consumer stopped")
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), obs.GinLogger(log))
	thttp.NewServer(svc, log).Register(r)

	srv := &http.Server{Addr: cfg.BookingHTTPAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", cfg.BookingHTTPAddr).WithField("exchange", cfg.BookingExchange).Info("booking-service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	stop()
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdown)
	log.Info("booking-service stopped")
}
