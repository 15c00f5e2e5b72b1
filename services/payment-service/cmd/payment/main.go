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
	"github.com/pitchplease/facility-booking/pkg/db"
	"github.com/pitchplease/facility-booking/pkg/mq"
	"github.com/pitchplease/facility-booking/pkg/obs"
	"github.com/pitchplease/facility-booking/services/payment-service/internal/domain"
	omisecli "github.com/pitchplease/facility-booking/services/payment-service/internal/omise"
	"github.com/pitchplease/facility-booking/services/payment-service/internal/repository"
	paysvc "github.com/pitchplease/facility-booking/services/payment-service/internal/service"
	"github.com/pitchplease/facility-booking/services/payment-service/internal/strategy"
	thttp "github.com/pitchplease/facility-booking/services/payment-service/internal/transport/http"
)

type Cfg struct {
	PGPaymentDSN    string   `envconfig:"PG_PAYMENT_DSN" required:"true"`
	PaymentHTTPAddr string   `envconfig:"PAYMENT_HTTP_ADDR" default:":8083"`
	ExtraStatuses   []string `envconfig:"PAYMENT_EXTRA_STATUSES"`

	// optional: PromptPay is not offered when unset
	OmisePub      string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSec      string `envconfig:"OMISE_SECRET_KEY"`
	OmiseCurrency string `envconfig:"OMISE_CURRENCY" default:"THB"`

	RabbitURL       string `envconfig:"RABBIT_URL"`
	PaymentExchange string `envconfig:"PAYMENT_EXCHANGE" default:"payment.exchange"`
}

func must[T any](v T, err error) T {
	if err != nil {
		log.WithError(err).Fatal("payment-service startup")
	}
	return v
}

var log = obs.NewLogger("payment-service")

func main() {
	var cfg Cfg
	must(0, config.Load(&cfg))

	shutdownTracer := must(obs.InitTracer("payment-service"))
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := must(db.Open(cfg.PGPaymentDSN, log))
	repo := repository.NewPaymentRepo(gdb)
	must(0, repo.Migrate())

	statuses := domain.NewStatusSet(cfg.ExtraStatuses...)
	dispatcher := must(strategy.NewDispatcher(strategy.Builtin()...))

	var gw omisecli.Gateway
	if cfg.OmisePub != "" && cfg.OmiseSec != "" {
		gw = must(omisecli.NewOmiseClient(cfg.OmisePub, cfg.OmiseSec))
		must(0, dispatcher.Register(omisecli.NewPromptPayHandler(gw, cfg.OmiseCurrency)))
		statuses.Add(string(domain.StatusPending), string(domain.StatusFailed))
	} else {
		log.Warn("omise keys not set, PromptPay disabled")
	}

	var pub mq.EventPublisher = mq.Noop{}
	if cfg.RabbitURL != "" {
		p := must(mq.NewPublisher(cfg.RabbitURL, cfg.PaymentExchange, "payment-service"))
		defer p.Close()
		pub = p
	} else {
		log.Warn("RABBIT_URL not set, payment events disabled")
	}

	svc := paysvc.NewPaymentSvc(repo, dispatcher, statuses, pub, log)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), obs.GinLogger(log))
	if gw != nil {
		thttp.NewWebhookServer(gw, svc, log).Register(r)
	}
	thttp.NewServer(svc, log).Register(r)

	srv := &http.Server{Addr: cfg.PaymentHTTPAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", cfg.PaymentHTTPAddr).
			WithField("methods", dispatcher.Methods()).
			WithField("statuses", statuses.List()).
			Info("payment-service listening")
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
	log.Info("payment-service stopped")
}
