package events

// Tipos de mensagem enviados aos observadores de um jogo
const (
	LiveNumberCalled = "number_called"
	LiveWinner       = "winner"
	LiveStatus       = "status"
)

// LiveUpdate é o envelope publicado no Redis e repassado pelo WebSocket.
type LiveUpdate struct {
	GameID  string `json:"gameId"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
