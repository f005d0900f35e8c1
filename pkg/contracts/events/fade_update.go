package events

import "time"

// FadeUpdate é a mensagem publicada no canal Redis de broadcast e repassada aos clientes WebSocket
type FadeUpdate struct {
	UserID      string     `json:"userId"`
	TotalBets   int        `json:"totalBets"`
	WinRate     float64    `json:"winRate"`
	ROI         float64    `json:"roi"`
	UnitsGained float64    `json:"unitsGained"`
	Confidence  Confidence `json:"confidence"`
	Ts          time.Time  `json:"ts"`
}

// FadeUpdateFrom monta a atualização a partir do evento de sync
func FadeUpdateFrom(e BetsSynced) FadeUpdate {
	return FadeUpdate{
		UserID:      e.UserID,
		TotalBets:   e.TotalBets,
		WinRate:     e.WinRate,
		ROI:         e.ROI,
		UnitsGained: e.UnitsGained,
		Confidence:  e.Confidence,
		Ts:          e.Ts,
	}
}
