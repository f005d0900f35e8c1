package stats

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
)

// Pesos do fade confidence. Regra de negócio fixa.
const (
	weightRecentForm    = 0.4
	weightSportLifetime = 0.3
	weightMarketType    = 0.2
	weightBigBet        = 0.1

	recentFormWindow = 10
	bigBetUnits      = 2.0

	minSportBets  = 5
	minMarketBets = 5
	minTeamBets   = 3
)

const (
	StatlineNoHistory = "No betting history yet"
	StatlineNoGraded  = "No graded bets yet"
)

// CategoryKind é o tipo de recorte do pior desempenho
type CategoryKind string

const (
	CategorySport   CategoryKind = "sport"
	CategoryMarket  CategoryKind = "market"
	CategoryTeam    CategoryKind = "team"
	CategoryOverall CategoryKind = "overall"
)

// Category é um candidato a pior recorte
type Category struct {
	Kind       CategoryKind
	Name       string
	Wins       int
	Losses     int
	WinRate    float64
	WorstBetID string // maior derrota do recorte
}

// ID é o identificador gravado em confidence_scores.worst_category ("sport:NFL")
func (c Category) ID() string {
	if c.Kind == CategoryOverall {
		return string(c.Kind)
	}
	return string(c.Kind) + ":" + c.Name
}

// Statline monta a frase exibida para quem quer fazer fade
func (c Category) Statline() string {
	switch c.Kind {
	case CategorySport:
		return fmt.Sprintf("He's %d-%d betting on %s", c.Wins, c.Losses, c.Name)
	case CategoryMarket:
		return fmt.Sprintf("He's %d-%d on %s bets", c.Wins, c.Losses, c.Name)
	case CategoryTeam:
		return fmt.Sprintf("He's %d-%d betting on the %s", c.Wins, c.Losses, c.Name)
	default:
		return fmt.Sprintf("He's %d-%d overall", c.Wins, c.Losses)
	}
}

// Components são as quatro taxas (0-100) que entram na fórmula
type Components struct {
	RecentForm    float64
	SportLifetime float64
	MarketType    float64
	BigBet        float64
	TopSport      string
}

// Confidence é o resultado do cálculo de fade confidence
type Confidence struct {
	Score      float64
	Worst      Category
	Statline   string
	Components Components
	GradedBets int
}

// Record converte para a linha de confidence_scores
func (c Confidence) Record(userID string, now time.Time) repo.ConfidenceScore {
	out := repo.ConfidenceScore{
		UserID:         userID,
		Score:          c.Score,
		Statline:       c.Statline,
		LastCalculated: now,
	}
	if c.GradedBets > 0 {
		out.WorstCategory = c.Worst.ID()
		out.WorstBetID = c.Worst.WorstBetID
	}
	return out
}

// FadeScore aplica a fórmula com clamp em [0,100]
func FadeScore(recentForm, sportLifetime, marketType, bigBet float64) float64 {
	weighted := weightRecentForm*recentForm +
		weightSportLifetime*sportLifetime +
		weightMarketType*marketType +
		weightBigBet*bigBet
	score := 100 - weighted
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return round2(score)
}

// CalculateFadeConfidence calcula score e pior recorte. Nunca falha:
// sem apostas decididas devolve score 0 e statline fixa.
func CalculateFadeConfidence(rows []repo.BetRow) Confidence {
	if len(rows) == 0 {
		return Confidence{Statline: StatlineNoHistory}
	}

	graded := gradedByRecency(rows)
	var overall record
	for _, r := range graded {
		overall.add(r.Result)
	}
	if !overall.decisive() {
		return Confidence{Statline: StatlineNoGraded}
	}
	base := overall.rate()

	comp := Components{
		RecentForm: recentForm(graded),
		BigBet:     bigBetRate(graded, base),
	}
	comp.TopSport, comp.SportLifetime = topSportRate(graded, base)
	comp.MarketType = meanMarketRate(graded, base)

	worst := worstCategory(graded)
	if worst == nil {
		worst = &Category{Kind: CategoryOverall, Wins: overall.wins, Losses: overall.losses, WinRate: round2(base)}
	}

	return Confidence{
		Score:      FadeScore(comp.RecentForm, comp.SportLifetime, comp.MarketType, comp.BigBet),
		Worst:      *worst,
		Statline:   worst.Statline(),
		Components: comp,
		GradedBets: len(graded),
	}
}

// gradedByRecency filtra Win/Loss/Push e ordena do mais recente para o mais antigo
func gradedByRecency(rows []repo.BetRow) []repo.BetRow {
	out := make([]repo.BetRow, 0, len(rows))
	for _, r := range rows {
		if r.Result.Graded() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return betTime(out[i]).After(betTime(out[j]))
	})
	return out
}

func betTime(r repo.BetRow) time.Time {
	if r.EventStartTime != nil {
		return *r.EventStartTime
	}
	return r.CreatedAt
}

func recentForm(graded []repo.BetRow) float64 {
	n := len(graded)
	if n > recentFormWindow {
		n = recentFormWindow
	}
	var rec record
	for _, r := range graded[:n] {
		rec.add(r.Result)
	}
	return rec.rate()
}

// topSportRate usa o esporte com mais apostas decididas; empate vai para a ordem alfabética
func topSportRate(graded []repo.BetRow, fallback float64) (string, float64) {
	bySport := map[string]*record{}
	for _, r := range graded {
		if r.Sport == "" {
			continue
		}
		rec, ok := bySport[r.Sport]
		if !ok {
			rec = &record{}
			bySport[r.Sport] = rec
		}
		rec.add(r.Result)
	}
	top, best := "", -1
	for _, name := range sortedKeys(bySport) {
		if n := bySport[name].graded(); n > best {
			top, best = name, n
		}
	}
	if top == "" || !bySport[top].decisive() {
		return top, fallback
	}
	return top, bySport[top].rate()
}

// meanMarketRate é a média simples das taxas por tipo de mercado
func meanMarketRate(graded []repo.BetRow, fallback float64) float64 {
	byMarket := map[string]*record{}
	for _, r := range graded {
		if r.BetType == "" {
			continue
		}
		rec, ok := byMarket[r.BetType]
		if !ok {
			rec = &record{}
			byMarket[r.BetType] = rec
		}
		rec.add(r.Result)
	}
	var sum float64
	var n int
	for _, k := range sortedKeys(byMarket) {
		if rec := byMarket[k]; rec.decisive() {
			sum += rec.rate()
			n++
		}
	}
	if n == 0 {
		return fallback
	}
	return sum / float64(n)
}

func bigBetRate(graded []repo.BetRow, fallback float64) float64 {
	var rec record
	for _, r := range graded {
		if r.UnitsRisked > bigBetUnits {
			rec.add(r.Result)
		}
	}
	if !rec.decisive() {
		return fallback
	}
	return rec.rate()
}

// worstCategory monta os candidatos na ordem esporte, mercado, time e escolhe a menor taxa.
// Empate mantém o candidato que apareceu primeiro.
func worstCategory(graded []repo.BetRow) *Category {
	type pool struct {
		kind    CategoryKind
		min     int
		keyOf   func(repo.BetRow) string
		members map[string][]repo.BetRow
	}
	pools := []*pool{
		{kind: CategorySport, min: minSportBets, keyOf: func(r repo.BetRow) string { return r.Sport }},
		{kind: CategoryMarket, min: minMarketBets, keyOf: func(r repo.BetRow) string { return r.BetType }},
		{kind: CategoryTeam, min: minTeamBets, keyOf: teamOf},
	}
	for _, p := range pools {
		p.members = map[string][]repo.BetRow{}
		for _, r := range graded {
			if k := p.keyOf(r); k != "" {
				p.members[k] = append(p.members[k], r)
			}
		}
	}

	var worst *Category
	for _, p := range pools {
		for _, name := range sortedKeys(p.members) {
			members := p.members[name]
			if len(members) < p.min {
				continue
			}
			var rec record
			for _, r := range members {
				rec.add(r.Result)
			}
			if !rec.decisive() {
				continue
			}
			c := Category{
				Kind:       p.kind,
				Name:       name,
				Wins:       rec.wins,
				Losses:     rec.losses,
				WinRate:    round2(rec.rate()),
				WorstBetID: biggestLoss(members),
			}
			if worst == nil || c.WinRate < worst.WinRate {
				worst = &c
			}
		}
	}
	return worst
}

// teamOf infere o time apostado comparando position com mandante/visitante.
// Position abreviada ("Thunder", "Oklahoma City") casa com palavras inteiras do nome;
// over/under nunca é time.
func teamOf(r repo.BetRow) string {
	pos := strings.Fields(strings.ToLower(r.Position))
	if len(pos) == 0 || r.BetType == "total" {
		return ""
	}
	if len(pos) == 1 && (pos[0] == "over" || pos[0] == "under") {
		return ""
	}
	for _, team := range []string{r.HomeTeam, r.AwayTeam} {
		t := strings.Fields(strings.ToLower(team))
		if len(t) == 0 {
			continue
		}
		if containsWords(pos, t) || containsWords(t, pos) {
			return team
		}
	}
	return ""
}

// containsWords indica se needle aparece como sequência contígua de palavras em hay
func containsWords(hay, needle []string) bool {
	for i := 0; i+len(needle) <= len(hay); i++ {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func biggestLoss(rows []repo.BetRow) string {
	id, worst := "", 0.0
	for _, r := range rows {
		if r.Result == repo.ResultLoss && (id == "" || r.UnitsWonLost < worst) {
			id, worst = r.BetID, r.UnitsWonLost
		}
	}
	return id
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
