package ws

// ClientMsg é a mensagem recebida do cliente WebSocket.
type ClientMsg struct {
	Type   string `json:"type"`   // subscribe | unsubscribe | ping
	GameID string `json:"gameId"` // obrigatório em subscribe/unsubscribe
}

// ServerMsg é o que o hub envia além dos updates do jogo.
type ServerMsg struct {
	Type    string `json:"type"` // pong | snapshot | error
	GameID  string `json:"gameId,omitempty"`
	Payload any    `json:"payload,omitempty"`
}
