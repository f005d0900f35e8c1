package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/sharpsports"
	"github.com/radieske/fade-sync-platform/internal/sync-service/normalizer"
	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
)

const defaultChunkSize = 500

// Resultado por usuário no clear-and-sync
const (
	BulkOK     = "ok"
	BulkFailed = "failed"
)

// UserReport é o resumo de um usuário no clear-and-sync
type UserReport struct {
	UserID     string  `json:"userId"`
	Result     string  `json:"result"`
	Deleted    int64   `json:"deleted"`
	Inserted   int     `json:"inserted"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// BulkReport consolida a execução
type BulkReport struct {
	Users     []UserReport `json:"users"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// ClearAndSyncAll apaga e ressincroniza cada usuário vinculado, em sequência.
// Falha de um usuário é reportada e o laço segue sem desfazer o que já foi gravado.
func (s *Service) ClearAndSyncAll(ctx context.Context, userIDs []string) (BulkReport, error) {
	profiles, err := s.Store.ListLinkedProfiles(ctx, userIDs, s.Opts.ProfileSyncLimit)
	if err != nil {
		return BulkReport{}, fmt.Errorf("list linked profiles: %w", err)
	}
	s.Log.Info("clear-and-sync started", zap.Int("users", len(profiles)))

	var report BulkReport
	for i, p := range profiles {
		if i > 0 {
			// cortesia com o rate limit do provedor
			if err := s.wait(ctx, s.Opts.InterUserDelay); err != nil {
				return report, err
			}
		}

		ur := s.clearAndSyncUser(ctx, p)
		report.Users = append(report.Users, ur)
		if ur.Result == BulkOK {
			report.Succeeded++
		} else {
			report.Failed++
		}
		if s.OnBulkUser != nil {
			s.OnBulkUser(ur.Result)
		}
	}

	s.Log.Info("clear-and-sync finished", zap.Int("succeeded", report.Succeeded), zap.Int("failed", report.Failed))
	return report, nil
}

func (s *Service) clearAndSyncUser(ctx context.Context, p repo.LinkedProfile) UserReport {
	log := s.Log.With(zap.String("user_id", p.UserID), zap.String("bettor_id", p.BettorID))
	ur := UserReport{UserID: p.UserID, Result: BulkFailed}
	fail := func(step string, err error) UserReport {
		ur.Error = fmt.Sprintf("%s: %v", step, err)
		log.Warn("clear-and-sync user failed", zap.String("step", step), zap.Error(err))
		return ur
	}

	deleted, err := s.Store.DeleteUserBets(ctx, p.UserID)
	if err != nil {
		return fail("delete", err)
	}
	ur.Deleted = deleted

	resp, err := s.Provider.TriggerRefresh(ctx, sharpsports.BettorScope(p.BettorID))
	switch {
	case err == nil:
		if o := sharpsports.Classify(resp); o.Status() != (sharpsports.Refreshed{}).Status() {
			log.Info("refresh state ignored in bulk", zap.String("status", o.Status()))
		}
	case errors.Is(err, sharpsports.ErrNotFound):
		s.providerError(err)
		log.Info("refresh returned 404, continuing")
	case errors.Is(err, sharpsports.ErrRateLimited):
		s.providerError(err)
		log.Warn("refresh rate limited, backing off", zap.Duration("delay", s.Opts.RateLimitDelay))
		if err := s.wait(ctx, s.Opts.RateLimitDelay); err != nil {
			return fail("rate_limit_wait", err)
		}
	default:
		s.providerError(err)
		return fail("refresh", err)
	}

	pending, completed, err := s.fetchSlips(ctx, p.BettorID)
	if err != nil {
		return fail("fetch", err)
	}
	rows := normalizer.TransformSlips(pending, p.UserID, true, log)
	rows = append(rows, normalizer.TransformSlips(completed, p.UserID, false, log)...)
	rows = dedupe(rows)

	size := s.Opts.InsertChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		n, err := s.Store.InsertBetsChunk(ctx, rows[start:end])
		if err != nil {
			return fail(fmt.Sprintf("insert chunk %d-%d", start, end), err)
		}
		ur.Inserted += n
	}
	if s.OnRowsUpserted != nil {
		s.OnRowsUpserted(ur.Inserted)
	}

	st, conf, err := s.recompute(ctx, p.UserID)
	if err != nil {
		return fail("recompute", err)
	}
	s.publish(ctx, log, p.UserID, p.BettorID, ur.Inserted, st, conf, SourceBulk)

	ur.Result = BulkOK
	ur.Confidence = conf.Score
	log.Info("clear-and-sync user done", zap.Int64("deleted", deleted), zap.Int("inserted", ur.Inserted))
	return ur
}
