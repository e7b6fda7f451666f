package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/shared/config"
	"github.com/radieske/tambola-live-platform/internal/shared/logger"
	"github.com/radieske/tambola-live-platform/internal/shared/metrics"
)

func rp(to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil {
		return nil, fmt.Errorf("parse upstream %q: %w", to, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream %q needs scheme and host", to)
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

// newRouter: /api/* -> game-service (sem o prefixo), /ws -> live-service
func newRouter(gameURL, liveURL string) (http.Handler, error) {
	gameProxy, err := rp(gameURL)
	if err != nil {
		return nil, err
	}
	liveProxy, err := rp(liveURL)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(withCORS)
	r.Handle("/api/*", http.StripPrefix("/api", gameProxy))
	r.Handle("/ws", liveProxy)
	return r, nil
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	handler, err := newRouter(cfg.GameServiceURL, cfg.LiveServiceURL)
	if err != nil {
		log.Fatal("gateway routes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ms := metrics.StartMetricsServer(cfg.MetricsPort)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info("api-gateway listening",
			zap.String("addr", srv.Addr),
			zap.String("game", cfg.GameServiceURL),
			zap.String("live", cfg.LiveServiceURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("gateway failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	_ = ms.Shutdown(shutdownCtx)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
