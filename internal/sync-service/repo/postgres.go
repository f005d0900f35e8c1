package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrNotFound = errors.New("not found")

// colunas de bets na ordem usada pelos INSERTs
const betColumns = `id, user_id, sportsbook, slip_id, bet_id, event, sport, position, line, bet_type, odds,
	units_risked, units_to_win, units_won_lost, event_start_time, home_team, away_team, result, is_processed,
	created_at, updated_at`

const betColumnCount = 21

const upsertBetsConflict = `
	ON CONFLICT (user_id, slip_id, bet_id) DO UPDATE SET
	  sportsbook       = EXCLUDED.sportsbook,
	  event            = EXCLUDED.event,
	  sport            = EXCLUDED.sport,
	  position         = EXCLUDED.position,
	  line             = EXCLUDED.line,
	  bet_type         = EXCLUDED.bet_type,
	  odds             = EXCLUDED.odds,
	  units_risked     = EXCLUDED.units_risked,
	  units_to_win     = EXCLUDED.units_to_win,
	  units_won_lost   = EXCLUDED.units_won_lost,
	  event_start_time = EXCLUDED.event_start_time,
	  home_team        = EXCLUDED.home_team,
	  away_team        = EXCLUDED.away_team,
	  result           = EXCLUDED.result,
	  is_processed     = EXCLUDED.is_processed,
	  updated_at       = EXCLUDED.updated_at`

// Postgres implementa a persistência de apostas, agregados e score
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// UpsertBets grava todas as linhas numa única transação (tudo ou nada)
func (p *Postgres) UpsertBets(ctx context.Context, rows []BetRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bets (`+betColumns+`) VALUES (`+placeholders(0, betColumnCount)+`)`+upsertBetsConflict)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert bets: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, betArgs(&rows[i], now)...); err != nil {
			return 0, fmt.Errorf("upsert bet slip=%s bet=%s: %w", rows[i].SlipID, rows[i].BetID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// InsertBetsChunk faz um INSERT multi-valores; usado pelo bulk em blocos de tamanho fixo
func (p *Postgres) InsertBetsChunk(ctx context.Context, rows []BetRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	var (
		sb   strings.Builder
		args = make([]any, 0, len(rows)*betColumnCount)
	)
	sb.WriteString(`INSERT INTO bets (` + betColumns + `) VALUES `)
	for i := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(" + placeholders(i*betColumnCount, betColumnCount) + ")")
		args = append(args, betArgs(&rows[i], now)...)
	}
	sb.WriteString(upsertBetsConflict)

	res, err := p.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("insert bets chunk (%d rows): %w", len(rows), err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteUserBets remove todas as apostas do usuário (só o bulk clear-and-sync apaga)
func (p *Postgres) DeleteUserBets(ctx context.Context, userID string) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM bets WHERE user_id=$1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete bets user=%s: %w", userID, err)
	}
	return res.RowsAffected()
}

// ListProcessedBets retorna as linhas com is_processed = true, base dos agregados
func (p *Postgres) ListProcessedBets(ctx context.Context, userID string) ([]BetRow, error) {
	return p.queryBets(ctx, `
		SELECT `+betColumns+`
		FROM bets
		WHERE user_id=$1 AND is_processed = true
		ORDER BY event_start_time DESC NULLS LAST, created_at DESC`, userID)
}

// ListRecentBets retorna as apostas mais recentes (qualquer resultado)
func (p *Postgres) ListRecentBets(ctx context.Context, userID string, limit int) ([]BetRow, error) {
	return p.queryBets(ctx, `
		SELECT `+betColumns+`
		FROM bets
		WHERE user_id=$1
		ORDER BY event_start_time DESC NULLS LAST, created_at DESC
		LIMIT $2`, userID, limit)
}

func (p *Postgres) queryBets(ctx context.Context, q string, args ...any) ([]BetRow, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BetRow
	for rows.Next() {
		var (
			b                                                       BetRow
			sportsbook, event, sport, position, betType, home, away sql.NullString
			line, odds                                              sql.NullFloat64
			start                                                   sql.NullTime
			result                                                  string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &sportsbook, &b.SlipID, &b.BetID, &event, &sport, &position,
			&line, &betType, &odds, &b.UnitsRisked, &b.UnitsToWin, &b.UnitsWonLost, &start, &home, &away,
			&result, &b.IsProcessed, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Sportsbook, b.Event, b.Sport, b.Position = sportsbook.String, event.String, sport.String, position.String
		b.BetType, b.HomeTeam, b.AwayTeam = betType.String, home.String, away.String
		b.Result = Result(result)
		if line.Valid {
			b.Line = &line.Float64
		}
		if odds.Valid {
			b.Odds = &odds.Float64
		}
		if start.Valid {
			t := start.Time
			b.EventStartTime = &t
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateProfileStats grava os agregados denormalizados em user_profiles
func (p *Postgres) UpdateProfileStats(ctx context.Context, userID string, s ProfileStats) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE user_profiles
		SET total_bets=$2, win_rate=$3, roi=$4, units_gained=$5, updated_at=now()
		WHERE user_id=$1`,
		userID, s.TotalBets, s.WinRate, s.ROI, s.UnitsGained)
	if err != nil {
		return fmt.Errorf("update profile stats user=%s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertConfidenceScore mantém uma linha por usuário
func (p *Postgres) UpsertConfidenceScore(ctx context.Context, c ConfidenceScore) error {
	const q = `
		INSERT INTO confidence_scores (user_id, score, worst_bet_id, worst_category, statline, last_calculated)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id) DO UPDATE SET
		  score           = EXCLUDED.score,
		  worst_bet_id    = EXCLUDED.worst_bet_id,
		  worst_category  = EXCLUDED.worst_category,
		  statline        = EXCLUDED.statline,
		  last_calculated = EXCLUDED.last_calculated`
	_, err := p.db.ExecContext(ctx, q,
		c.UserID, c.Score, nullString(c.WorstBetID), nullString(c.WorstCategory), c.Statline, c.LastCalculated)
	if err != nil {
		return fmt.Errorf("upsert confidence user=%s: %w", c.UserID, err)
	}
	return nil
}

func (p *Postgres) GetConfidenceScore(ctx context.Context, userID string) (ConfidenceScore, error) {
	var (
		c                  ConfidenceScore
		worstBet, category sql.NullString
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT user_id, score, worst_bet_id, worst_category, statline, last_calculated
		FROM confidence_scores WHERE user_id=$1`, userID).
		Scan(&c.UserID, &c.Score, &worstBet, &category, &c.Statline, &c.LastCalculated)
	if err == sql.ErrNoRows {
		return ConfidenceScore{}, ErrNotFound
	}
	if err != nil {
		return ConfidenceScore{}, err
	}
	c.WorstBetID, c.WorstCategory = worstBet.String, category.String
	return c, nil
}

// GetBettorID retorna o bettor SharpSports vinculado ao usuário
func (p *Postgres) GetBettorID(ctx context.Context, userID string) (string, error) {
	var id sql.NullString
	err := p.db.QueryRowContext(ctx, `SELECT sharpsports_bettor_id FROM user_profiles WHERE user_id=$1`, userID).Scan(&id)
	if err == sql.ErrNoRows || (err == nil && !id.Valid) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return id.String, nil
}

// SetBettorID grava o bettor informado pelo cliente após o link
func (p *Postgres) SetBettorID(ctx context.Context, userID, bettorID string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE user_profiles SET sharpsports_bettor_id=$2, updated_at=now() WHERE user_id=$1`, userID, bettorID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLinkedProfiles lista usuários com bettor vinculado; userIDs vazio = todos
func (p *Postgres) ListLinkedProfiles(ctx context.Context, userIDs []string, limit int) ([]LinkedProfile, error) {
	q := `
		SELECT user_id, sharpsports_bettor_id
		FROM user_profiles
		WHERE sharpsports_bettor_id IS NOT NULL
		  AND (cardinality($1::text[]) = 0 OR user_id::text = ANY($1::text[]))
		ORDER BY user_id`
	args := []any{pq.Array(nonNil(userIDs))}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LinkedProfile
	for rows.Next() {
		var lp LinkedProfile
		if err := rows.Scan(&lp.UserID, &lp.BettorID); err != nil {
			return nil, err
		}
		out = append(out, lp)
	}
	return out, rows.Err()
}

// GetPublicProfile retorna o recorte público do perfil
func (p *Postgres) GetPublicProfile(ctx context.Context, userID string) (PublicProfile, error) {
	var (
		pp   PublicProfile
		name sql.NullString
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, total_bets, win_rate, roi, units_gained
		FROM user_profiles WHERE user_id=$1`, userID).
		Scan(&pp.UserID, &name, &pp.Stats.TotalBets, &pp.Stats.WinRate, &pp.Stats.ROI, &pp.Stats.UnitsGained)
	if err == sql.ErrNoRows {
		return PublicProfile{}, ErrNotFound
	}
	if err != nil {
		return PublicProfile{}, err
	}
	pp.DisplayName = name.String
	return pp, nil
}

// UpdateSubscription grava o estado Stripe; sem userID localiza pelo customer.
// Retorna o user_id afetado.
func (p *Postgres) UpdateSubscription(ctx context.Context, s Subscription) (string, error) {
	var userID string
	var err error
	if s.UserID != "" {
		err = p.db.QueryRowContext(ctx, `
			UPDATE user_profiles
			SET subscription_status=$2,
			    stripe_customer_id=COALESCE(NULLIF($3,''), stripe_customer_id),
			    stripe_subscription_id=COALESCE(NULLIF($4,''), stripe_subscription_id),
			    updated_at=now()
			WHERE user_id=$1
			RETURNING user_id`,
			s.UserID, s.Status, s.CustomerID, s.SubscriptionID).Scan(&userID)
	} else {
		err = p.db.QueryRowContext(ctx, `
			UPDATE user_profiles
			SET subscription_status=$2,
			    stripe_subscription_id=COALESCE(NULLIF($3,''), stripe_subscription_id),
			    updated_at=now()
			WHERE stripe_customer_id=$1
			RETURNING user_id`,
			s.CustomerID, s.Status, s.SubscriptionID).Scan(&userID)
	}
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("update subscription: %w", err)
	}
	return userID, nil
}

// MarkStripeEvent registra o evento; false quando já foi processado (idempotência por event id)
func (p *Postgres) MarkStripeEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO stripe_events (id, type) VALUES ($1,$2)
		ON CONFLICT (id) DO NOTHING`, eventID, eventType)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func betArgs(b *BetRow, now time.Time) []any {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	var start any
	if b.EventStartTime != nil {
		start = *b.EventStartTime
	}
	return []any{
		b.ID, b.UserID, nullString(b.Sportsbook), b.SlipID, b.BetID, nullString(b.Event), nullString(b.Sport),
		nullString(b.Position), nullFloat(b.Line), nullString(b.BetType), nullFloat(b.Odds),
		b.UnitsRisked, b.UnitsToWin, b.UnitsWonLost, start, nullString(b.HomeTeam), nullString(b.AwayTeam),
		string(b.Result), b.IsProcessed, b.CreatedAt, b.UpdatedAt,
	}
}

// placeholders gera "$n+1,...,$n+count"
func placeholders(offset, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", offset+i+1)
	}
	return strings.Join(parts, ",")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
