// Package stats calcula os agregados de desempenho e o fade confidence a partir das linhas normalizadas.
package stats

import (
	"math"

	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
)

// Stats são os agregados gravados em user_profiles
type Stats struct {
	TotalBets   int
	Wins        int
	Losses      int
	Pushes      int
	WinRate     float64 // 0-100, push fora do numerador e denominador
	ROI         float64 // unitsGained / unitsRisked * 100
	UnitsGained float64
	UnitsRisked float64
}

// Profile converte para o formato persistido
func (s Stats) Profile() repo.ProfileStats {
	return repo.ProfileStats{TotalBets: s.TotalBets, WinRate: s.WinRate, ROI: s.ROI, UnitsGained: s.UnitsGained}
}

// CalculateBettorStats agrega as linhas processadas de um usuário
func CalculateBettorStats(rows []repo.BetRow) Stats {
	var s Stats
	for _, r := range rows {
		// pendentes e canceladas (void/cashout) ficam fora do total e do ROI
		if !r.Result.Graded() {
			continue
		}
		s.TotalBets++
		switch r.Result {
		case repo.ResultWin:
			s.Wins++
		case repo.ResultLoss:
			s.Losses++
		case repo.ResultPush:
			s.Pushes++
		}
		s.UnitsGained += r.UnitsWonLost
		s.UnitsRisked += r.UnitsRisked
	}
	s.WinRate = round2(winRate(s.Wins, s.Losses))
	if s.UnitsRisked > 0 {
		s.ROI = round2(s.UnitsGained / s.UnitsRisked * 100)
	}
	s.UnitsGained = round2(s.UnitsGained)
	s.UnitsRisked = round2(s.UnitsRisked)
	return s
}

// record acumula vitórias/derrotas de um recorte
type record struct {
	wins, losses, pushes int
}

func (r *record) add(res repo.Result) {
	switch res {
	case repo.ResultWin:
		r.wins++
	case repo.ResultLoss:
		r.losses++
	case repo.ResultPush:
		r.pushes++
	}
}

func (r record) graded() int    { return r.wins + r.losses + r.pushes }
func (r record) decisive() bool { return r.wins+r.losses > 0 }
func (r record) rate() float64  { return winRate(r.wins, r.losses) }

func winRate(wins, losses int) float64 {
	if wins+losses == 0 {
		return 0
	}
	return float64(wins) / float64(wins+losses) * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
