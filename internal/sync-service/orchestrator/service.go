// Package orchestrator conduz um sync de apostas: refresh no provedor, leitura dos slips,
// normalização, upsert e recálculo dos agregados.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/fade-sync-platform/internal/shared/logger"
	"github.com/radieske/fade-sync-platform/internal/shared/session"
	"github.com/radieske/fade-sync-platform/internal/sharpsports"
	"github.com/radieske/fade-sync-platform/internal/sync-service/normalizer"
	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
	"github.com/radieske/fade-sync-platform/internal/sync-service/stats"
	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

// Status devolvido quando o sync chega ao fim
const StatusSuccess = "success"

// Origem registrada no evento bets_synced
const (
	SourceSync      = "sync-bets"
	SourceBulk      = "clear-and-sync-bets"
	SourceStatline  = "calculate-bet-statline"
	defaultMaxPages = 10
)

// ErrNoBettor indica usuário sem conta SharpSports vinculada
var ErrNoBettor = errors.New("no linked sportsbook bettor")

// Provider é o subconjunto do client SharpSports usado no sync
type Provider interface {
	TriggerRefresh(ctx context.Context, scope sharpsports.Scope) (*sharpsports.RefreshResponse, error)
	GetContext(ctx context.Context, userID, bettorAccountID string) (string, error)
	LinkURL(cid string) string
	GetBettorAccount(ctx context.Context, accountID string) (*sharpsports.BettorAccount, error)
	FetchAllBetSlips(ctx context.Context, bettorID string, status sharpsports.SlipStatus, maxPages int) ([]sharpsports.BetSlip, error)
}

// Store é a persistência usada pelo orquestrador
type Store interface {
	GetBettorID(ctx context.Context, userID string) (string, error)
	SetBettorID(ctx context.Context, userID, bettorID string) error
	UpsertBets(ctx context.Context, rows []repo.BetRow) (int, error)
	InsertBetsChunk(ctx context.Context, rows []repo.BetRow) (int, error)
	DeleteUserBets(ctx context.Context, userID string) (int64, error)
	ListProcessedBets(ctx context.Context, userID string) ([]repo.BetRow, error)
	UpdateProfileStats(ctx context.Context, userID string, s repo.ProfileStats) error
	UpsertConfidenceScore(ctx context.Context, c repo.ConfidenceScore) error
	ListLinkedProfiles(ctx context.Context, userIDs []string, limit int) ([]repo.LinkedProfile, error)
}

// SessionStore recebe o estado do vínculo após cada sync
type SessionStore interface {
	SetLinkStatus(ctx context.Context, userID, status string) error
}

// Publisher publica o evento bets_synced (best effort)
type Publisher interface {
	PublishBetsSynced(ctx context.Context, ev events.BetsSynced) error
}

// Options são os tempos e limites fixos do sync
type Options struct {
	PollInterval     time.Duration
	PollTimeout      time.Duration
	InterUserDelay   time.Duration
	RateLimitDelay   time.Duration
	InsertChunkSize  int
	MaxPages         int
	ProfileSyncLimit int
}

// Service orquestra os syncs. Sessions e Publisher são opcionais.
type Service struct {
	Log       *zap.Logger
	Provider  Provider
	Store     Store
	Sessions  SessionStore
	Publisher Publisher
	Opts      Options

	OnStatus        func(status string)              // métricas por status final
	OnProviderError func(kind sharpsports.ErrorKind) // métricas por tipo de erro
	OnRowsUpserted  func(n int)                      // métricas
	OnSyncDuration  func(d time.Duration)            // métricas
	OnBulkUser      func(result string)              // métricas do clear-and-sync

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Request identifica o usuário e o escopo do refresh
type Request struct {
	UserID          string
	BettorID        string
	BettorAccountID string
	SkipRefresh     bool // logo após um fluxo de 2FA, para não disparar outro
}

// Result é a resposta do sync; estados esperados do provedor não são erros
type Result struct {
	Status        string
	ActionURL     string // URL de OTP ou re-link
	AccountID     string
	RetryAfter    time.Duration
	RowsSynced    int
	PendingBets   int
	CompletedBets int
	Stats         stats.Stats
	Confidence    stats.Confidence
}

// SyncUser executa um sync completo para um usuário.
// Erros do provedor e do banco sobem sem retry do fluxo inteiro.
func (s *Service) SyncUser(ctx context.Context, req Request) (res Result, err error) {
	start := s.clock()
	log := logger.ForUser(s.Log, req.UserID)
	defer func() {
		if err == nil {
			s.status(res.Status)
			if s.OnSyncDuration != nil {
				s.OnSyncDuration(s.clock().Sub(start))
			}
		}
	}()

	bettorID, err := s.resolveBettor(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if !req.SkipRefresh {
		scope := sharpsports.BettorScope(bettorID)
		if req.BettorAccountID != "" {
			scope = sharpsports.AccountScope(req.BettorAccountID)
		}
		resp, err := s.Provider.TriggerRefresh(ctx, scope)
		if err != nil {
			s.providerError(err)
			return Result{}, err
		}

		outcome := sharpsports.Classify(resp)
		early, accounts, err := s.handleOutcome(ctx, req, outcome)
		if err != nil {
			return Result{}, err
		}
		if early != nil {
			log.Info("sync stopped by refresh state", zap.String("status", early.Status), zap.String("account_id", early.AccountID))
			return *early, nil
		}
		s.waitForRefresh(ctx, log, accounts)
	} else {
		log.Info("refresh skipped")
	}

	pending, completed, err := s.fetchSlips(ctx, bettorID)
	if err != nil {
		return Result{}, err
	}

	rows := normalizer.TransformSlips(pending, req.UserID, true, log)
	rows = append(rows, normalizer.TransformSlips(completed, req.UserID, false, log)...)
	rows = dedupe(rows)

	n, err := s.Store.UpsertBets(ctx, rows)
	if err != nil {
		return Result{}, fmt.Errorf("upsert bets: %w", err)
	}
	if s.OnRowsUpserted != nil {
		s.OnRowsUpserted(n)
	}

	st, conf, err := s.recompute(ctx, req.UserID)
	if err != nil {
		return Result{}, err
	}

	s.setLinkStatus(ctx, log, req.UserID, session.LinkLinked)
	s.publish(ctx, log, req.UserID, bettorID, n, st, conf, SourceSync)

	log.Info("sync finished",
		zap.Int("rows", n), zap.Int("pending", len(pending)), zap.Int("completed", len(completed)),
		zap.Float64("confidence", conf.Score))

	return Result{
		Status:        StatusSuccess,
		RowsSynced:    n,
		PendingBets:   len(pending),
		CompletedBets: len(completed),
		Stats:         st,
		Confidence:    conf,
	}, nil
}

// Recalculate recalcula agregados e score a partir das linhas já gravadas
func (s *Service) Recalculate(ctx context.Context, userID string) (stats.Stats, stats.Confidence, error) {
	st, conf, err := s.recompute(ctx, userID)
	if err != nil {
		return stats.Stats{}, stats.Confidence{}, err
	}
	s.publish(ctx, logger.ForUser(s.Log, userID), userID, "", 0, st, conf, SourceStatline)
	return st, conf, nil
}

// handleOutcome trata cada estado do refresh. Devolve resultado antecipado
// para estados que exigem ação do usuário; nil segue para a leitura dos slips.
func (s *Service) handleOutcome(ctx context.Context, req Request, outcome sharpsports.RefreshOutcome) (*Result, sharpsports.Accounts, error) {
	early := func(accounts sharpsports.Accounts, link string, withURL bool) (*Result, sharpsports.Accounts, error) {
		r := &Result{Status: outcome.Status(), AccountID: accounts.First()}
		if withURL {
			accountID := r.AccountID
			if accountID == "" {
				accountID = req.BettorAccountID
			}
			cid, err := s.Provider.GetContext(ctx, req.UserID, accountID)
			if err != nil {
				s.providerError(err)
				return nil, nil, err
			}
			r.ActionURL = s.Provider.LinkURL(cid)
		}
		s.setLinkStatus(ctx, s.Log, req.UserID, link)
		return r, nil, nil
	}

	switch o := outcome.(type) {
	case sharpsports.OTPRequired:
		return early(o.Accounts, session.LinkOTPRequired, true)
	case sharpsports.Unverified:
		return early(o.Accounts, session.LinkRelinkRequired, true)
	case sharpsports.NoAccess:
		return early(o.Accounts, session.LinkRelinkRequired, true)
	case sharpsports.RateLimited:
		r := &Result{Status: o.Status(), AccountID: o.First(), RetryAfter: s.Opts.RateLimitDelay}
		return r, nil, nil
	case sharpsports.Unverifiable:
		return early(o.Accounts, session.LinkRelinkRequired, true)
	case sharpsports.BookInactive:
		return early(o.Accounts, session.LinkInactive, false)
	case sharpsports.BookRegionInactive:
		return early(o.Accounts, session.LinkInactive, false)
	case sharpsports.AuthParameterRequired:
		return early(o.Accounts, session.LinkRelinkRequired, true)
	case sharpsports.ExtensionUpdateRequired:
		return early(o.Accounts, session.LinkRelinkRequired, false)
	case sharpsports.Refreshed:
		return nil, o.Accounts, nil
	default:
		return nil, nil, fmt.Errorf("unhandled refresh outcome %T", outcome)
	}
}

// fetchSlips lê pendentes e concluídos em paralelo
func (s *Service) fetchSlips(ctx context.Context, bettorID string) (pending, completed []sharpsports.BetSlip, err error) {
	maxPages := s.Opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pending, err = s.Provider.FetchAllBetSlips(gctx, bettorID, sharpsports.StatusPending, maxPages)
		return err
	})
	g.Go(func() error {
		var err error
		completed, err = s.Provider.FetchAllBetSlips(gctx, bettorID, sharpsports.StatusCompleted, maxPages)
		return err
	})
	if err := g.Wait(); err != nil {
		s.providerError(err)
		return nil, nil, err
	}
	return pending, completed, nil
}

// recompute refaz UserProfileStats e ConfidenceScore com as linhas processadas
func (s *Service) recompute(ctx context.Context, userID string) (stats.Stats, stats.Confidence, error) {
	processed, err := s.Store.ListProcessedBets(ctx, userID)
	if err != nil {
		return stats.Stats{}, stats.Confidence{}, fmt.Errorf("list processed bets: %w", err)
	}
	st := stats.CalculateBettorStats(processed)
	if err := s.Store.UpdateProfileStats(ctx, userID, st.Profile()); err != nil {
		return stats.Stats{}, stats.Confidence{}, fmt.Errorf("update profile stats: %w", err)
	}
	conf := stats.CalculateFadeConfidence(processed)
	if err := s.Store.UpsertConfidenceScore(ctx, conf.Record(userID, s.clock())); err != nil {
		return stats.Stats{}, stats.Confidence{}, fmt.Errorf("upsert confidence score: %w", err)
	}
	return st, conf, nil
}

func (s *Service) resolveBettor(ctx context.Context, req Request) (string, error) {
	if req.BettorID != "" {
		if err := s.Store.SetBettorID(ctx, req.UserID, req.BettorID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return "", fmt.Errorf("store bettor id: %w", err)
		}
		return req.BettorID, nil
	}
	id, err := s.Store.GetBettorID(ctx, req.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrNoBettor
	}
	if err != nil {
		return "", fmt.Errorf("get bettor id: %w", err)
	}
	return id, nil
}

func (s *Service) setLinkStatus(ctx context.Context, log *zap.Logger, userID, status string) {
	if s.Sessions == nil {
		return
	}
	if err := s.Sessions.SetLinkStatus(ctx, userID, status); err != nil {
		log.Warn("session link status update failed", zap.String("status", status), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, log *zap.Logger, userID, bettorID string, rows int, st stats.Stats, conf stats.Confidence, source string) {
	if s.Publisher == nil {
		return
	}
	rec := conf.Record(userID, s.clock())
	ev := events.BetsSynced{
		UserID:      userID,
		BettorID:    bettorID,
		RowsSynced:  rows,
		TotalBets:   st.TotalBets,
		WinRate:     st.WinRate,
		ROI:         st.ROI,
		UnitsGained: st.UnitsGained,
		Confidence: events.Confidence{
			Score:         rec.Score,
			WorstCategory: rec.WorstCategory,
			WorstBetID:    rec.WorstBetID,
			Statline:      rec.Statline,
		},
		Source: source,
		Ts:     s.clock(),
	}
	if err := s.Publisher.PublishBetsSynced(ctx, ev); err != nil {
		log.Warn("publish bets_synced failed", zap.Error(err))
	}
}

func (s *Service) status(st string) {
	if s.OnStatus != nil {
		s.OnStatus(st)
	}
}

func (s *Service) providerError(err error) {
	if s.OnProviderError == nil {
		return
	}
	kind := sharpsports.KindOf(err)
	if kind == "" {
		kind = "transport"
	}
	s.OnProviderError(kind)
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *Service) wait(ctx context.Context, d time.Duration) error {
	if s.sleep != nil {
		return s.sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// dedupe mantém a última ocorrência de cada (user_id, slip_id, bet_id)
func dedupe(rows []repo.BetRow) []repo.BetRow {
	type key struct{ user, slip, bet string }
	idx := make(map[key]int, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := key{r.UserID, r.SlipID, r.BetID}
		if i, ok := idx[k]; ok {
			out[i] = r
			continue
		}
		idx[k] = len(out)
		out = append(out, r)
	}
	return out
}
