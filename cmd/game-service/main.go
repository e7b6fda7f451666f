package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/winner"
	"github.com/radieske/tambola-live-platform/internal/game-service/cache"
	"github.com/radieske/tambola-live-platform/internal/game-service/caller"
	"github.com/radieske/tambola-live-platform/internal/game-service/coordinator"
	httpapi "github.com/radieske/tambola-live-platform/internal/game-service/http"
	"github.com/radieske/tambola-live-platform/internal/game-service/producer"
	"github.com/radieske/tambola-live-platform/internal/game-service/pubsub"
	"github.com/radieske/tambola-live-platform/internal/game-service/repo"
	sharedcache "github.com/radieske/tambola-live-platform/internal/shared/cache"
	"github.com/radieske/tambola-live-platform/internal/shared/config"
	"github.com/radieske/tambola-live-platform/internal/shared/db"
	"github.com/radieske/tambola-live-platform/internal/shared/kafka"
	"github.com/radieske/tambola-live-platform/internal/shared/logger"
	"github.com/radieske/tambola-live-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	// um writer por tópico, chave = game_id
	numbersW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNumberCalled)
	statusW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicGameStatus)
	winnersW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWinnerDeclared)
	defer numbersW.Close()
	defer statusW.Close()
	defer winnersW.Close()

	// Métricas
	called := prometheus.NewCounter(prometheus.CounterOpts{Name: "tambola_numbers_called_total", Help: "números chamados"})
	winners := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "tambola_winners_total", Help: "ganhadores por prêmio"}, []string{"prize"})
	issues := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "tambola_detection_issues_total", Help: "entradas ignoradas pelo detector"}, []string{"kind"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "tambola_game_errors_total", Help: "erros por estágio"}, []string{"stage"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "tambola_http_requests_total", Help: "requisições HTTP"}, []string{"route", "status"})
	liveReceivers := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "tambola_live_receivers", Help: "assinantes por envelope ao vivo", Buckets: []float64{0, 1, 2, 5, 10}})
	prometheus.MustRegister(called, winners, issues, errorsBy, requests, liveReceivers)

	store := repo.NewPostgres(pg)
	coord := coordinator.New(log, store, producer.NewKafkaPublisher(numbersW, statusW, winnersW), nil)
	live := pubsub.NewRedisBroadcaster(redisClient, cfg.RedisLiveChannel)
	live.OnPublish = func(n int64) { liveReceivers.Observe(float64(n)) }
	coord.Live = live
	coord.Boards = cache.NewBoardCache(redisClient, cfg.LiveStateTTL)
	coord.Defaults = coordinator.Defaults{
		MaxTickets: cfg.DefaultMaxTickets,
		CallDelay:  cfg.DefaultCallDelay,
		TicketSet:  cfg.TicketSet,
	}
	coord.OnWinner = func(p prize.Type) { winners.WithLabelValues(string(p)).Inc() }
	coord.OnIssue = func(k winner.IssueKind) { issues.WithLabelValues(string(k)).Inc() }
	coord.OnError = func(stage string) { errorsBy.WithLabelValues(stage).Inc() }

	// Chamada automática de números
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal("scheduler init", zap.Error(err))
	}
	calls := caller.New(log, coord, sched)
	calls.OnCalled = called.Inc
	calls.OnError = func(stage string) { errorsBy.WithLabelValues("caller_" + stage).Inc() }

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	restored, err := calls.Restore(ctx)
	if err != nil {
		log.Fatal("restore active games", zap.Error(err))
	}
	calls.Start()
	log.Info("number caller started", zap.Int("active_games", restored))

	api := httpapi.NewServer(log, coord, calls)
	api.OnRequest = func(route string, status int) {
		requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ms := metrics.StartMetricsServer(cfg.MetricsPort,
		store.Ping,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)
	log.Info("metrics/health listening", zap.String("addr", ms.Addr))

	go func() {
		log.Info("game-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	_ = ms.Shutdown(shutdownCtx)
	if err := calls.Shutdown(); err != nil {
		log.Warn("scheduler shutdown", zap.Error(err))
	}
	log.Info("game-service stopped")
}
