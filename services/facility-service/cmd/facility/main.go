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
	"github.com/pitchplease/facility-booking/services/facility-service/internal/repository"
	"github.com/pitchplease/facility-booking/services/facility-service/internal/service"
	thttp "github.com/pitchplease/facility-booking/services/facility-service/internal/transport/http"
)

type Cfg struct {
	PGFacilityDSN    string `envconfig:"PG_FACILITY_DSN" required:"true"`
	FacilityHTTPAddr string `envconfig:"FACILITY_HTTP_ADDR" default:":8084"`

	RabbitURL        string `envconfig:"RABBIT_URL"`
	FacilityExchange string `envconfig:"FACILITY_EXCHANGE" default:"facility.exchange"`
}

func must[T any](v T, err error) T {
	if err != nil {
		log.WithError(err).Fatal("facility-service startup")
	}
	return v
}

var log = obs.NewLogger("facility-service")

func main() {
	var cfg Cfg
	must(0, config.Load(&cfg))

	shutdownTracer := must(obs.InitTracer("facility-service"))
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := must(db.Open(cfg.PGFacilityDSN, log))
	repo := repository.NewFacilityRepo(gdb)
	must(0, repo.Migrate())

	var pub mq.EventPublisher = mq.Noop{}
	if cfg.RabbitURL != "" {
		p := must(mq.NewPublisher(cfg.RabbitURL, cfg.FacilityExchange, "facility-service"))
		defer p.Close()
		pub = p
	} else {
		log.Warn("RABBIT_URL not set, facility events disabled")
	}

	svc := service.NewFacilitySvc(repo, pub, log)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), obs.GinLogger(log))
	thttp.NewServer(svc, log).Register(r)

	srv := &http.Server{Addr: cfg.FacilityHTTPAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", cfg.FacilityHTTPAddr).Info("facility-service listening")
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
	log.Info("facility-service stopped")
}
