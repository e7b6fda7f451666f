package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/winner"
	"github.com/radieske/tambola-live-platform/internal/game-service/coordinator"
	"github.com/radieske/tambola-live-platform/internal/game-service/producer"
	"github.com/radieske/tambola-live-platform/internal/game-service/pubsub"
	"github.com/radieske/tambola-live-platform/internal/game-service/repo"
	"github.com/radieske/tambola-live-platform/internal/winner-worker/consumer"
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
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// consumer group winner-worker: cada number_called reavalia o jogo
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicNumberCalled, "winner-worker")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNumberCalledDLQ)
	defer dlq.Close()
	numbersW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNumberCalled)
	statusW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicGameStatus)
	winnersW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWinnerDeclared)
	defer numbersW.Close()
	defer statusW.Close()
	defer winnersW.Close()

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "winner_worker_messages_consumed_total", Help: "mensagens consumidas"})
	declared := prometheus.NewCounter(prometheus.CounterOpts{Name: "winner_worker_winners_declared_total", Help: "ganhadores gravados"})
	byPrize := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "winner_worker_winners_by_prize_total", Help: "ganhadores por prêmio"}, []string{"prize"})
	issues := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "winner_worker_detection_issues_total", Help: "entradas ignoradas pelo detector"}, []string{"kind"})
	dead := prometheus.NewCounter(prometheus.CounterOpts{Name: "winner_worker_dlq_total", Help: "mensagens enviadas à DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "winner_worker_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, declared, byPrize, issues, dead, errorsBy)

	store := repo.NewPostgres(pg)
	coord := coordinator.New(log, store, producer.NewKafkaPublisher(numbersW, statusW, winnersW), nil)
	coord.Live = pubsub.NewRedisBroadcaster(redisClient, cfg.RedisLiveChannel)
	coord.OnWinner = func(p prize.Type) { byPrize.WithLabelValues(string(p)).Inc() }
	coord.OnIssue = func(k winner.IssueKind) { issues.WithLabelValues(string(k)).Inc() }
	coord.OnError = func(stage string) { errorsBy.WithLabelValues(stage).Inc() }

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Eval:       coord,
		DLQ:        dlq,
		Retries:    3,
		Backoff:    250 * time.Millisecond,
		OnConsumed: consumed.Inc,
		OnDeclared: func(n int) { declared.Add(float64(n)) },
		OnDLQ:      dead.Inc,
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	ms := metrics.StartMetricsServer(cfg.MetricsPort,
		store.Ping,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)
	log.Info("metrics/health listening", zap.String("addr", ms.Addr))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("winner-worker started", zap.String("topic", cfg.TopicNumberCalled))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = ms.Shutdown(shutdownCtx)
	log.Info("winner-worker stopped")
}
