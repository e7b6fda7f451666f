package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/game-service/cache"
	"github.com/radieske/tambola-live-platform/internal/live-service/ws"
	sharedcache "github.com/radieske/tambola-live-platform/internal/shared/cache"
	"github.com/radieske/tambola-live-platform/internal/shared/config"
	"github.com/radieske/tambola-live-platform/internal/shared/logger"
	"github.com/radieske/tambola-live-platform/internal/shared/metrics"
)

// boards entrega o quadro em cache como snapshot do subscribe
type boards struct{ c *cache.BoardCache }

func (b boards) Snapshot(ctx context.Context, gameID string) (any, bool, error) {
	board, ok, err := b.c.GetBoard(ctx, gameID)
	return board, ok, err
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	conns := prometheus.NewGauge(prometheus.GaugeOpts{Name: "live_ws_connections", Help: "conexões WebSocket abertas"})
	broadcasts := prometheus.NewCounter(prometheus.CounterOpts{Name: "live_ws_broadcasts_total", Help: "updates repassados"})
	writeErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "live_ws_write_errors_total", Help: "falhas de escrita no WebSocket"})
	prometheus.MustRegister(conns, broadcasts, writeErrors)

	// TODO: restringir origens quando o front tiver domínio fixo
	hub := ws.NewHub(log, func(r *http.Request) bool { return true })
	hub.Snapshots = boards{c: cache.NewBoardCache(redisClient, cfg.LiveStateTTL)}
	hub.OnConnect = func(delta int) { conns.Add(float64(delta)) }
	hub.OnBroadcast = broadcasts.Inc
	hub.OnWriteError = writeErrors.Inc

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisLiveChannel, hub, log); err != nil {
		log.Fatal("redis subscribe failed", zap.Error(err))
	}
	log.Info("redis subscriber started", zap.String("channel", cfg.RedisLiveChannel))

	r := chi.NewRouter()
	r.Get("/ws", hub.HandleWS)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ms := metrics.StartMetricsServer(cfg.MetricsPort,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)
	log.Info("metrics/health listening", zap.String("addr", ms.Addr))

	go func() {
		log.Info("live-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("ws server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	_ = ms.Shutdown(shutdownCtx)
	log.Info("live-service stopped")
}
