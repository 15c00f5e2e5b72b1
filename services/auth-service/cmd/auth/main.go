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

	"github.com/pitchplease/facility-booking/pkg/auth"
	"github.com/pitchplease/facility-booking/pkg/config"
	"github.com/pitchplease/facility-booking/pkg/db"
	"github.com/pitchplease/facility-booking/pkg/obs"
	"github.com/pitchplease/facility-booking/services/auth-service/internal/repository"
	"github.com/pitchplease/facility-booking/services/auth-service/internal/service"
	thttp "github.com/pitchplease/facility-booking/services/auth-service/internal/transport/http"
)

type Cfg struct {
	PGAuthDSN    string        `envconfig:"PG_AUTH_DSN" required:"true"`
	AuthHTTPAddr string        `envconfig:"AUTH_HTTP_ADDR" default:":8081"`
	JWTSecret    string        `envconfig:"JWT_SECRET" required:"true"`
	AccessTTL    time.Duration `envconfig:"JWT_ACCESS_TTL" default:"60m"`
	RefreshTTL   time.Duration `envconfig:"JWT_REFRESH_TTL" default:"720h"`
	PurgeEvery   time.Duration `envconfig:"INVALID_TOKEN_PURGE_INTERVAL" default:"1h"`
}

func must[T any](v T, err error) T {
	if err != nil {
		log.WithError(err).Fatal("auth-service startup")
	}
	return v
}

var log = obs.NewLogger("auth-service")

func main() {
	var cfg Cfg
	must(0, config.Load(&cfg))

	shutdownTracer := must(obs.InitTracer("auth-service"))
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := must(db.Open(cfg.PGAuthDSN, log))
	repo := repository.NewUserRepo(gdb)
	must(0, repo.Migrate())

	svc := service.NewAuthSvc(repo, auth.NewSigner(cfg.JWTSecret), service.TTL{Access: cfg.AccessTTL, Refresh: cfg.RefreshTTL}, log)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go purgeLoop(ctx, repo, cfg.PurgeEvery)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), obs.GinLogger(log))
	thttp.NewServer(svc, log).Register(r)

	srv := &http.Server{Addr: cfg.AuthHTTPAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", cfg.AuthHTTPAddr).Info("auth-service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	stop()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	log.Info("auth-service stopped")
}

func purgeLoop(ctx context.Context, repo *repository.UserRepo, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeInvalid(ctx, now.UTC())
			if err != nil {
				log.WithError(err).Warn("purge invalid tokens")
				continue
			}
			if n > 0 {
				log.WithField("purged", n).Info("expired invalid tokens purged")
			}
		}
	}
}
