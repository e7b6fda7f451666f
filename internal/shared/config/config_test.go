package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "game-service")

	cfg := Load()
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "9095", cfg.MetricsPort)
	assert.Equal(t, "number_called", cfg.TopicNumberCalled)
	assert.Equal(t, 5*time.Second, cfg.DefaultCallDelay)
	assert.Equal(t, 100, cfg.DefaultMaxTickets)
	assert.Equal(t, "demo-set-1", cfg.TicketSet)
}

func TestLoad_PerServicePorts(t *testing.T) {
	t.Setenv("SERVICE_NAME", "winner-worker")
	t.Setenv("METRICS_PORT_WINNER", "9200")

	cfg := Load()
	assert.Empty(t, cfg.HTTPPort)
	assert.Equal(t, "9200", cfg.MetricsPort)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DEFAULT_CALL_DELAY", "3")
	t.Setenv("LIVE_STATE_TTL", "90m")
	t.Setenv("DEFAULT_MAX_TICKETS", "60")
	t.Setenv("TICKET_COUNT", "abc")

	cfg := Load()
	assert.Equal(t, 3*time.Second, cfg.DefaultCallDelay)
	assert.Equal(t, 90*time.Minute, cfg.LiveStateTTL)
	assert.Equal(t, 60, cfg.DefaultMaxTickets)
	assert.Equal(t, 600, cfg.TicketCount)
}

func TestLoad_Gateway(t *testing.T) {
	t.Setenv("SERVICE_NAME", "api-gateway")
	t.Setenv("LIVE_SERVICE_URL", "http://live:8081")

	cfg := Load()
	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8080", cfg.GameServiceURL)
	assert.Equal(t, "http://live:8081", cfg.LiveServiceURL)
}
