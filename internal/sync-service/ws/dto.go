package ws

// ClientMsg é a mensagem recebida do cliente WebSocket
type ClientMsg struct {
	Type   string `json:"type"`   // subscribe | unsubscribe | ping
	UserID string `json:"userId"` // perfil acompanhado; requerido em subscribe/unsubscribe
}

// ServerMsg é o envelope enviado ao cliente
type ServerMsg struct {
	Type    string `json:"type"` // fade_update | pong | error
	UserID  string `json:"userId,omitempty"`
	Payload any    `json:"payload,omitempty"`
}
