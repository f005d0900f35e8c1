package repo

import "time"

// Result é o resultado normalizado de uma aposta
type Result string

const (
	ResultPending   Result = "Pending"
	ResultWin       Result = "Win"
	ResultLoss      Result = "Loss"
	ResultPush      Result = "Push"
	ResultCancelled Result = "Cancelled"
)

// Graded indica resultado decidido (entra em cálculos de desempenho)
func (r Result) Graded() bool {
	return r == ResultWin || r == ResultLoss || r == ResultPush
}

// BetRow é a linha normalizada persistida na tabela bets.
// Chave de upsert: (user_id, slip_id, bet_id).
type BetRow struct {
	ID             string
	UserID         string
	Sportsbook     string
	SlipID         string
	BetID          string
	Event          string
	Sport          string
	Position       string
	Line           *float64
	BetType        string // moneyline | spread | total
	Odds           *float64
	UnitsRisked    float64
	UnitsToWin     float64
	UnitsWonLost   float64
	EventStartTime *time.Time
	HomeTeam       string
	AwayTeam       string
	Result         Result
	IsProcessed    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfileStats são os agregados denormalizados em user_profiles
type ProfileStats struct {
	TotalBets   int
	WinRate     float64
	ROI         float64
	UnitsGained float64
}

// ConfidenceScore é a linha única por usuário em confidence_scores
type ConfidenceScore struct {
	UserID         string
	Score          float64
	WorstBetID     string
	WorstCategory  string
	Statline       string
	LastCalculated time.Time
}

// LinkedProfile é um usuário com bettor vinculado no SharpSports
type LinkedProfile struct {
	UserID   string
	BettorID string
}

// Subscription é o estado de cobrança vindo do Stripe
type Subscription struct {
	UserID         string
	CustomerID     string
	SubscriptionID string
	Status         string
}

// PublicProfile é o recorte público exposto em get-public-betting-data
type PublicProfile struct {
	UserID      string
	DisplayName string
	Stats       ProfileStats
}
