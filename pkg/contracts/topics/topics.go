package topics

const (
	// Jogo
	NumberCalled      = "number_called"
	GameStatusChanged = "game_status_changed"

	// Ganhadores
	WinnerDeclared = "winner_declared"

	// DLQs
	NumberCalledDLQ = "number_called_dlq"
)

// Canal Redis Pub/Sub lido pelo live-service
const LiveBroadcast = "tambola_live_broadcast"
