package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/sharpsports"
	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
)

var hundred = decimal.NewFromInt(100)

// outcomes mapeia o outcome do provedor para o Result interno.
// cashout conta como Cancelled (não entra em taxa de acerto).
var outcomes = map[string]repo.Result{
	"win":       repo.ResultWin,
	"loss":      repo.ResultLoss,
	"push":      repo.ResultPush,
	"void":      repo.ResultCancelled,
	"cashout":   repo.ResultCancelled,
	"halfwin":   repo.ResultWin,
	"half-win":  repo.ResultWin,
	"half_win":  repo.ResultWin,
	"halfloss":  repo.ResultLoss,
	"half-loss": repo.ResultLoss,
	"half_loss": repo.ResultLoss,
}

// MapOutcome devolve o Result e se o outcome era conhecido
func MapOutcome(outcome string) (repo.Result, bool) {
	r, ok := outcomes[strings.ToLower(strings.TrimSpace(outcome))]
	if !ok {
		return repo.ResultPending, false
	}
	return r, true
}

// CentsToUnits converte centavos inteiros em unidades decimais (÷100)
func CentsToUnits(cents float64) float64 {
	f, _ := decimal.NewFromFloat(cents).Div(hundred).Float64()
	return f
}

// TransformSlipToRows gera uma linha por perna do slip.
// Pernas sem slip id ou bet id são descartadas (log, não fatal).
func TransformSlipToRows(slip sharpsports.BetSlip, userID string, isPending bool, log *zap.Logger) []repo.BetRow {
	if log == nil {
		log = zap.NewNop()
	}

	result := repo.ResultPending
	if !isPending {
		r, known := MapOutcome(slip.Outcome)
		if !known {
			log.Warn("unknown slip outcome", zap.String("slip_id", slip.ID), zap.String("outcome", slip.Outcome))
		}
		result = r
	}

	var wonLost float64
	if slip.NetProfit != nil {
		wonLost = CentsToUnits(*slip.NetProfit)
	}

	rows := make([]repo.BetRow, 0, len(slip.Bets))
	for _, bet := range slip.Bets {
		if slip.ID == "" || bet.ID == "" {
			log.Warn("skipping bet leg without ids", zap.String("slip_id", slip.ID), zap.String("bet_id", bet.ID))
			continue
		}

		row := repo.BetRow{
			UserID:       userID,
			Sportsbook:   slip.Book.Name,
			SlipID:       slip.ID,
			BetID:        bet.ID,
			Position:     bet.Position,
			Line:         bet.Line,
			BetType:      strings.ToLower(bet.Proposition),
			Odds:         firstNonNil(bet.OddsAmerican, slip.OddsAmerican, bet.OddsDecimal),
			UnitsRisked:  CentsToUnits(slip.AtRisk),
			UnitsToWin:   CentsToUnits(slip.ToWin),
			UnitsWonLost: wonLost,
			Result:       result,
			IsProcessed:  !isPending,
		}
		if ev := bet.Event; ev != nil {
			row.Event = ev.Name
			row.Sport = firstNonEmpty(ev.League, ev.Sport)
			row.EventStartTime = ev.StartTime
			if ev.ContestantHome != nil {
				row.HomeTeam = ev.ContestantHome.FullName
			}
			if ev.ContestantAway != nil {
				row.AwayTeam = ev.ContestantAway.FullName
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// TransformSlips aplica TransformSlipToRows em um lote
func TransformSlips(slips []sharpsports.BetSlip, userID string, isPending bool, log *zap.Logger) []repo.BetRow {
	var out []repo.BetRow
	for _, s := range slips {
		out = append(out, TransformSlipToRows(s, userID, isPending, log)...)
	}
	return out
}

func firstNonNil(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
