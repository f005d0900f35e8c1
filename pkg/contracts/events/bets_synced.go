package events

import "time"

// Evento publicado no tópico "bets_synced" após cada sync bem-sucedido
type Confidence struct {
	Score         float64 `json:"score"`
	WorstCategory string  `json:"worst_category,omitempty"` // ex: "sport:NFL"
	WorstBetID    string  `json:"worst_bet_id,omitempty"`
	Statline      string  `json:"statline"`
}

type BetsSynced struct {
	UserID      string     `json:"user_id"`
	BettorID    string     `json:"bettor_id"`
	RowsSynced  int        `json:"rows_synced"`
	TotalBets   int        `json:"total_bets"`
	WinRate     float64    `json:"win_rate"`
	ROI         float64    `json:"roi"`
	UnitsGained float64    `json:"units_gained"`
	Confidence  Confidence `json:"confidence"`
	Source      string     `json:"source"` // "sync-bets" | "clear-and-sync-bets" | "calculate-bet-statline"
	Ts          time.Time  `json:"ts"`
}
