package sharpsports

import (
	"encoding/json"
	"time"
)

// SlipStatus filtra betSlips por situação no provedor
type SlipStatus string

const (
	StatusPending   SlipStatus = "pending"
	StatusCompleted SlipStatus = "completed"
)

// Book identifica a casa de apostas de origem
type Book struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Abbr string `json:"abbr"`
}

type Contestant struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// Event representa o evento esportivo referenciado por uma perna
type Event struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Sport          string      `json:"sport"`
	League         string      `json:"league"`
	StartTime      *time.Time  `json:"startTime"`
	ContestantHome *Contestant `json:"contestantHome"`
	ContestantAway *Contestant `json:"contestantAway"`
}

// Bet é uma perna dentro de um BetSlip
type Bet struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`        // "straight"
	Proposition  string   `json:"proposition"` // moneyline | spread | total
	Position     string   `json:"position"`    // time ou over/under
	Line         *float64 `json:"line"`
	OddsAmerican *float64 `json:"oddsAmerican"`
	OddsDecimal  *float64 `json:"oddsDecimal"`
	Status       string   `json:"status"`
	Outcome      string   `json:"outcome"`
	Event        *Event   `json:"event"`
}

// BetSlip é o agrupamento de pernas; valores monetários em centavos
type BetSlip struct {
	ID            string     `json:"id"`
	Bettor        string     `json:"bettor"`
	BettorAccount string     `json:"bettorAccount"`
	Book          Book       `json:"book"`
	Type          string     `json:"type"`    // single | parlay
	Status        string     `json:"status"`  // pending | completed
	Outcome       string     `json:"outcome"` // win | loss | push | void | cashout | half-win | half-loss
	OddsAmerican  *float64   `json:"oddsAmerican"`
	AtRisk        float64    `json:"atRisk"`
	ToWin         float64    `json:"toWin"`
	NetProfit     *float64   `json:"netProfit"`
	TimePlaced    *time.Time `json:"timePlaced"`
	DateClosed    *time.Time `json:"dateClosed"`
	Bets          []Bet      `json:"bets"`
}

// AccountRef é um item dos buckets da resposta de refresh.
// O provedor devolve ora o id puro, ora o objeto da conta.
type AccountRef struct {
	ID       string `json:"id"`
	BookName string `json:"bookName,omitempty"`
}

func (a *AccountRef) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		a.ID = id
		return nil
	}
	var obj struct {
		ID   string `json:"id"`
		Book *Book  `json:"book"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	a.ID = obj.ID
	if obj.Book != nil {
		a.BookName = obj.Book.Name
	}
	return nil
}

// RefreshResponse traz os buckets nomeados que o chamador precisa avaliar
type RefreshResponse struct {
	Success                 []AccountRef `json:"success"`
	OTPRequired             []AccountRef `json:"otpRequired"`
	Unverified              []AccountRef `json:"unverified"`
	NoAccess                []AccountRef `json:"noAccess"`
	RateLimited             []AccountRef `json:"rateLimited"`
	IsUnverifiable          []AccountRef `json:"isUnverifiable"`
	BookInactive            []AccountRef `json:"bookInactive"`
	BookRegionInactive      []AccountRef `json:"bookRegionInactive"`
	AuthParameterRequired   []AccountRef `json:"authParameterRequired"`
	ExtensionUpdateRequired []AccountRef `json:"extensionUpdateRequired"`
}

// BettorAccount é o estado de uma conta vinculada (usado no poll do refresh)
type BettorAccount struct {
	ID                string     `json:"id"`
	Book              Book       `json:"book"`
	Verified          bool       `json:"verified"`
	Access            bool       `json:"access"`
	RefreshInProgress bool       `json:"refreshInProgress"`
	LatestRefreshTime *time.Time `json:"latestRefreshTime"`
}

type contextRequest struct {
	InternalID      string `json:"internalId"`
	BettorAccountID string `json:"bettorAccountId,omitempty"`
}

type contextResponse struct {
	CID string `json:"cid"`
}
