package dto

import "time"

type Stats struct {
	TotalBets   int     `json:"totalBets"`
	WinRate     float64 `json:"winRate"`
	ROI         float64 `json:"roi"`
	UnitsGained float64 `json:"unitsGained"`
}

type Confidence struct {
	Score         float64 `json:"score"`
	WorstCategory string  `json:"worstCategory,omitempty"`
	WorstBetID    string  `json:"worstBetId,omitempty"`
	Statline      string  `json:"statline"`
}

type SyncBetsResponse struct {
	Success       bool        `json:"success"`
	Status        string      `json:"status"`
	OTPURL        string      `json:"otpUrl,omitempty"`
	RelinkURL     string      `json:"relinkUrl,omitempty"`
	AccountID     string      `json:"accountId,omitempty"`
	RetryAfter    int         `json:"retryAfter,omitempty"` // segundos
	RowsSynced    int         `json:"rowsSynced"`
	PendingBets   int         `json:"pendingBets"`
	CompletedBets int         `json:"completedBets"`
	Stats         *Stats      `json:"stats,omitempty"`
	Confidence    *Confidence `json:"confidence,omitempty"`
}

type StatlineResponse struct {
	Success    bool       `json:"success"`
	UserID     string     `json:"userId"`
	Stats      Stats      `json:"stats"`
	Confidence Confidence `json:"confidence"`
}

type PublicProfile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Stats
}

type PublicBet struct {
	SlipID         string     `json:"slipId"`
	BetID          string     `json:"betId"`
	Sportsbook     string     `json:"sportsbook,omitempty"`
	Event          string     `json:"event,omitempty"`
	Sport          string     `json:"sport,omitempty"`
	Position       string     `json:"position,omitempty"`
	Line           *float64   `json:"line,omitempty"`
	BetType        string     `json:"betType,omitempty"`
	Odds           *float64   `json:"odds,omitempty"`
	UnitsRisked    float64    `json:"unitsRisked"`
	UnitsWonLost   float64    `json:"unitsWonLost"`
	Result         string     `json:"result"`
	EventStartTime *time.Time `json:"eventStartTime,omitempty"`
}

type PublicBettingData struct {
	Profile    PublicProfile `json:"profile"`
	Confidence *Confidence   `json:"confidence"`
	RecentBets []PublicBet   `json:"recentBets"`
}

type ErrorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}
