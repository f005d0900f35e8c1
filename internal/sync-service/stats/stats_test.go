package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
)

var t0 = time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)

func bet(id, sport, market string, res repo.Result, risked, net float64, day int) repo.BetRow {
	start := t0.AddDate(0, 0, day)
	return repo.BetRow{
		BetID:          id,
		Sport:          sport,
		BetType:        market,
		Result:         res,
		UnitsRisked:    risked,
		UnitsWonLost:   net,
		EventStartTime: &start,
	}
}

func TestCalculateBettorStatsExcludesPush(t *testing.T) {
	rows := []repo.BetRow{
		bet("1", "NFL", "spread", repo.ResultWin, 1, 0.91, 1),
		bet("2", "NFL", "spread", repo.ResultLoss, 1, -1, 2),
		bet("3", "NFL", "spread", repo.ResultWin, 1, 0.91, 3),
		bet("4", "NFL", "spread", repo.ResultPush, 1, 0, 4),
		bet("5", "NFL", "spread", repo.ResultPending, 1, 0, 5),
	}

	s := CalculateBettorStats(rows)

	if s.TotalBets != 4 {
		t.Fatalf("total = %d, want 4 (pending excluded)", s.TotalBets)
	}
	if s.Wins != 2 || s.Losses != 1 || s.Pushes != 1 {
		t.Fatalf("record = %d-%d-%d", s.Wins, s.Losses, s.Pushes)
	}
	if s.WinRate != 66.67 {
		t.Fatalf("win rate = %v, want 66.67", s.WinRate)
	}
	if s.UnitsGained != 0.82 {
		t.Fatalf("units = %v", s.UnitsGained)
	}
	if s.ROI != 20.5 {
		t.Fatalf("roi = %v, want 20.5", s.ROI)
	}
}

func TestCalculateBettorStatsEmpty(t *testing.T) {
	s := CalculateBettorStats(nil)
	if s.TotalBets != 0 || s.WinRate != 0 || s.ROI != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestFadeScoreClamp(t *testing.T) {
	tests := []struct {
		name                string
		recent, sp, mk, big float64
		want                float64
	}{
		{"all zero", 0, 0, 0, 0, 100},
		{"all hundred", 100, 100, 100, 100, 0},
		{"weighted", 50, 40, 30, 20, 100 - (20 + 12 + 6 + 2)},
		{"above range", 150, 150, 150, 150, 0},
		{"below range", -50, -50, -50, -50, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FadeScore(tt.recent, tt.sp, tt.mk, tt.big); got != tt.want {
				t.Fatalf("FadeScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateFadeConfidenceNoHistory(t *testing.T) {
	c := CalculateFadeConfidence(nil)
	if c.Score != 0 || c.Statline != StatlineNoHistory {
		t.Fatalf("got %+v", c)
	}

	pending := []repo.BetRow{bet("1", "NFL", "spread", repo.ResultPending, 1, 0, 1)}
	c = CalculateFadeConfidence(pending)
	if c.Score != 0 || c.Statline != StatlineNoGraded {
		t.Fatalf("pending only: %+v", c)
	}

	pushes := []repo.BetRow{bet("1", "NFL", "spread", repo.ResultPush, 1, 0, 1)}
	c = CalculateFadeConfidence(pushes)
	if c.Score != 0 || c.Statline != StatlineNoGraded {
		t.Fatalf("push only: %+v", c)
	}
	if rec := c.Record("u1", t0); rec.WorstCategory != "" || rec.WorstBetID != "" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestCalculateFadeConfidenceWorstSport(t *testing.T) {
	// 8 apostas NFL: 2-6, 4 spread + 4 moneyline, sem times
	var rows []repo.BetRow
	results := []repo.Result{
		repo.ResultWin, repo.ResultLoss, repo.ResultLoss, repo.ResultLoss,
		repo.ResultWin, repo.ResultLoss, repo.ResultLoss, repo.ResultLoss,
	}
	for i, res := range results {
		market := "spread"
		if i%2 == 1 {
			market = "moneyline"
		}
		net := 0.91
		if res == repo.ResultLoss {
			net = -1
		}
		rows = append(rows, bet(fmt.Sprintf("b%d", i), "NFL", market, res, 1, net, i))
	}
	rows[5].UnitsWonLost = -3 // maior derrota

	c := CalculateFadeConfidence(rows)

	if c.Statline != "He's 2-6 betting on NFL" {
		t.Fatalf("statline = %q", c.Statline)
	}
	if c.Worst.ID() != "sport:NFL" || c.Worst.WorstBetID != "b5" {
		t.Fatalf("worst = %+v", c.Worst)
	}
	// recente, esporte e big bet (fallback) = 25; mercado = média(50, 0) = 25
	if c.Score != 75 {
		t.Fatalf("score = %v, want 75", c.Score)
	}
	if c.Components.TopSport != "NFL" {
		t.Fatalf("top sport = %q", c.Components.TopSport)
	}
}

func TestCalculateFadeConfidenceTieKeepsFirstCandidate(t *testing.T) {
	// NBA 2-3 e spread 2-3 empatam em 40%: esporte vem antes de mercado
	var rows []repo.BetRow
	for i := 0; i < 5; i++ {
		res := repo.ResultLoss
		if i < 2 {
			res = repo.ResultWin
		}
		rows = append(rows, bet(fmt.Sprintf("b%d", i), "NBA", "spread", res, 1, 0, i))
	}

	c := CalculateFadeConfidence(rows)
	if c.Worst.Kind != CategorySport || c.Statline != "He's 2-3 betting on NBA" {
		t.Fatalf("worst = %+v statline=%q", c.Worst, c.Statline)
	}
}

func TestCalculateFadeConfidenceTeamCategory(t *testing.T) {
	var rows []repo.BetRow
	for i := 0; i < 3; i++ {
		r := bet(fmt.Sprintf("t%d", i), "NFL", "moneyline", repo.ResultLoss, 1, -1, i)
		r.Position = "Kansas City Chiefs"
		r.HomeTeam, r.AwayTeam = "Kansas City Chiefs", "Buffalo Bills"
		rows = append(rows, r)
	}
	// outros esportes com bom desempenho para a equipe ser o pior recorte
	for i := 0; i < 5; i++ {
		rows = append(rows, bet(fmt.Sprintf("w%d", i), "NBA", "spread", repo.ResultWin, 1, 1, 10+i))
	}

	c := CalculateFadeConfidence(rows)
	if c.Worst.Kind != CategoryTeam || c.Statline != "He's 0-3 betting on the Kansas City Chiefs" {
		t.Fatalf("worst = %+v statline=%q", c.Worst, c.Statline)
	}
}

func TestCalculateFadeConfidenceOverallFallback(t *testing.T) {
	rows := []repo.BetRow{
		bet("1", "NFL", "spread", repo.ResultWin, 1, 1, 1),
		bet("2", "NBA", "total", repo.ResultLoss, 1, -1, 2),
	}
	c := CalculateFadeConfidence(rows)
	if c.Worst.Kind != CategoryOverall || c.Statline != "He's 1-1 overall" {
		t.Fatalf("worst = %+v statline=%q", c.Worst, c.Statline)
	}
	if c.Record("u1", t0).WorstCategory != "overall" {
		t.Fatalf("record category = %q", c.Record("u1", t0).WorstCategory)
	}
}

func TestRecentFormUsesLatestTen(t *testing.T) {
	var rows []repo.BetRow
	// 10 vitórias antigas, 10 derrotas recentes
	for i := 0; i < 10; i++ {
		rows = append(rows, bet(fmt.Sprintf("old%d", i), "", "", repo.ResultWin, 1, 1, i))
	}
	for i := 0; i < 10; i++ {
		rows = append(rows, bet(fmt.Sprintf("new%d", i), "", "", repo.ResultLoss, 1, -1, 100+i))
	}
	c := CalculateFadeConfidence(rows)
	if c.Components.RecentForm != 0 {
		t.Fatalf("recent form = %v, want 0", c.Components.RecentForm)
	}
}

func TestCalculateBettorStatsSkipsCancelled(t *testing.T) {
	rows := []repo.BetRow{
		bet("1", "NFL", "spread", repo.ResultWin, 1, 1, 1),
		bet("2", "NFL", "spread", repo.ResultLoss, 1, -1, 2),
		bet("3", "NFL", "spread", repo.ResultCancelled, 3, 0, 3),
		bet("4", "NFL", "moneyline", repo.ResultCancelled, 2, -0.5, 4),
	}

	s := CalculateBettorStats(rows)

	if s.TotalBets != 2 || s.UnitsRisked != 2 {
		t.Fatalf("total=%d risked=%v, want 2/2", s.TotalBets, s.UnitsRisked)
	}
	if s.UnitsGained != 0 || s.ROI != 0 {
		t.Fatalf("units=%v roi=%v", s.UnitsGained, s.ROI)
	}
}

func TestTeamOf(t *testing.T) {
	tests := []struct {
		name     string
		market   string
		position string
		want     string
	}{
		{"full name", "moneyline", "Oklahoma City Thunder", "Oklahoma City Thunder"},
		{"name with line", "spread", "Oklahoma City Thunder -4.5", "Oklahoma City Thunder"},
		{"nickname", "moneyline", "Thunder", "Oklahoma City Thunder"},
		{"away team", "spread", "Denver Nuggets +4.5", "Denver Nuggets"},
		{"under is not a team", "total", "Under", ""},
		{"over without market", "", "over", ""},
		{"partial word", "moneyline", "Thun", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := repo.BetRow{
				BetType:  tt.market,
				Position: tt.position,
				HomeTeam: "Oklahoma City Thunder",
				AwayTeam: "Denver Nuggets",
			}
			if got := teamOf(r); got != tt.want {
				t.Fatalf("teamOf(%q) = %q, want %q", tt.position, got, tt.want)
			}
		})
	}
}

func TestCalculateFadeConfidenceUnderBetsAreNotTeamBets(t *testing.T) {
	var rows []repo.BetRow
	for i := 0; i < 4; i++ {
		r := bet(fmt.Sprintf("u%d", i), "NBA", "total", repo.ResultLoss, 1, -1, i)
		r.Position = "Under"
		r.HomeTeam, r.AwayTeam = "Oklahoma City Thunder", "Denver Nuggets"
		rows = append(rows, r)
	}

	c := CalculateFadeConfidence(rows)
	if c.Worst.Kind == CategoryTeam {
		t.Fatalf("worst = %+v statline=%q", c.Worst, c.Statline)
	}
	if c.Statline != "He's 0-4 overall" {
		t.Fatalf("statline = %q", c.Statline)
	}
}

func TestMeanMarketRateIsStable(t *testing.T) {
	var rows []repo.BetRow
	markets := []string{"moneyline", "spread", "total", "prop", "future", "teaser", "alt"}
	for i, m := range markets {
		for j := 0; j <= i; j++ {
			res := repo.ResultLoss
			if j%3 == 0 {
				res = repo.ResultWin
			}
			rows = append(rows, bet(fmt.Sprintf("%s-%d", m, j), "NFL", m, res, 1, 0, j))
		}
	}
	want := meanMarketRate(rows, 0)
	for i := 0; i < 50; i++ {
		if got := meanMarketRate(rows, 0); got != want {
			t.Fatalf("run %d: %v != %v", i, got, want)
		}
	}
}
