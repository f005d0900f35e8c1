package simulator

import (
	"fmt"
	"time"

	"github.com/radieske/fade-sync-platform/internal/sharpsports"
)

type fixture struct {
	sport, league, home, away string
	proposition, position     string
	line                      *float64
	odds                      float64
	atRisk                    float64 // centavos
	outcome                   string  // "" = pendente
}

func f(v float64) *float64 { return &v }

// Catálogo fixo de apostas simuladas; um bettor qualquer recebe sempre as mesmas
var catalog = []fixture{
	{"Football", "NFL", "Kansas City Chiefs", "Buffalo Bills", "moneyline", "Kansas City Chiefs", nil, -150, 15000, "loss"},
	{"Football", "NFL", "Dallas Cowboys", "Philadelphia Eagles", "spread", "Dallas Cowboys", f(3.5), -110, 11000, "loss"},
	{"Football", "NFL", "Green Bay Packers", "Chicago Bears", "total", "over", f(44.5), -110, 5500, "win"},
	{"Basketball", "NBA", "Boston Celtics", "Miami Heat", "moneyline", "Miami Heat", nil, 180, 10000, "loss"},
	{"Basketball", "NBA", "Denver Nuggets", "Phoenix Suns", "spread", "Phoenix Suns", f(-4.5), -105, 10500, "push"},
	{"Baseball", "MLB", "New York Yankees", "Boston Red Sox", "moneyline", "New York Yankees", nil, -120, 12000, "win"},
	{"Football", "NFL", "San Francisco 49ers", "Seattle Seahawks", "spread", "Seattle Seahawks", f(7), -110, 33000, "loss"},
	{"Hockey", "NHL", "Toronto Maple Leafs", "Montreal Canadiens", "moneyline", "Toronto Maple Leafs", nil, -135, 13500, "cashout"},
	{"Football", "NFL", "Buffalo Bills", "Miami Dolphins", "moneyline", "Buffalo Bills", nil, -200, 20000, ""},
	{"Basketball", "NBA", "Los Angeles Lakers", "Golden State Warriors", "total", "under", f(228.5), -110, 11000, ""},
}

// slipsFor monta os betSlips do bettor no status pedido
func slipsFor(bettorID, accountID string, status sharpsports.SlipStatus, base time.Time) []sharpsports.BetSlip {
	var out []sharpsports.BetSlip
	for i, fx := range catalog {
		pending := fx.outcome == ""
		if pending != (status == sharpsports.StatusPending) {
			continue
		}
		placed := base.Add(-time.Duration(len(catalog)-i) * 24 * time.Hour)
		odds := fx.odds
		slip := sharpsports.BetSlip{
			ID:            fmt.Sprintf("SLIP_%s_%02d", bettorID, i+1),
			Bettor:        bettorID,
			BettorAccount: accountID,
			Book:          sharpsports.Book{ID: "BOOK_FD", Name: "FanDuel", Abbr: "fd"},
			Type:          "single",
			Status:        string(status),
			Outcome:       fx.outcome,
			OddsAmerican:  &odds,
			AtRisk:        fx.atRisk,
			ToWin:         toWin(fx.atRisk, odds),
			TimePlaced:    &placed,
			Bets: []sharpsports.Bet{{
				ID:           fmt.Sprintf("BET_%s_%02d", bettorID, i+1),
				Type:         "straight",
				Proposition:  fx.proposition,
				Position:     fx.position,
				Line:         fx.line,
				OddsAmerican: &odds,
				Status:       string(status),
				Outcome:      fx.outcome,
				Event: &sharpsports.Event{
					ID:             fmt.Sprintf("EVNT_%02d", i+1),
					Name:           fx.away + " @ " + fx.home,
					Sport:          fx.sport,
					League:         fx.league,
					StartTime:      &placed,
					ContestantHome: &sharpsports.Contestant{ID: "home", FullName: fx.home},
					ContestantAway: &sharpsports.Contestant{ID: "away", FullName: fx.away},
				},
			}},
		}
		if !pending {
			closed := placed.Add(4 * time.Hour)
			slip.DateClosed = &closed
			net := netProfit(fx.atRisk, slip.ToWin, fx.outcome)
			slip.NetProfit = &net
		}
		out = append(out, slip)
	}
	return out
}

func toWin(atRisk, american float64) float64 {
	if american > 0 {
		return atRisk * american / 100
	}
	return atRisk * 100 / -american
}

func netProfit(atRisk, toWin float64, outcome string) float64 {
	switch outcome {
	case "win":
		return toWin
	case "loss":
		return -atRisk
	case "cashout":
		return -atRisk / 2
	default:
		return 0
	}
}
