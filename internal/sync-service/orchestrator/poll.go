package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/sharpsports"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 30 * time.Second
)

// waitForRefresh consulta as contas até o refresh terminar.
// Passado o timeout segue mesmo assim; erros de consulta não interrompem o sync.
func (s *Service) waitForRefresh(ctx context.Context, log *zap.Logger, accounts sharpsports.Accounts) {
	if len(accounts) == 0 {
		return
	}
	interval, timeout := s.Opts.PollInterval, s.Opts.PollTimeout
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}

	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		busy := 0
		for _, acc := range accounts {
			ba, err := s.Provider.GetBettorAccount(pctx, acc.ID)
			if err != nil {
				if pctx.Err() != nil {
					break
				}
				log.Warn("poll bettor account failed", zap.String("account_id", acc.ID), zap.Error(err))
				continue
			}
			if ba.RefreshInProgress {
				busy++
			}
		}
		if busy == 0 && pctx.Err() == nil {
			log.Debug("refresh finished", zap.Int("polls", attempt))
			return
		}
		if err := s.wait(pctx, interval); err != nil {
			log.Warn("refresh still running after poll timeout, proceeding",
				zap.Duration("timeout", timeout), zap.Int("busy_accounts", busy))
			return
		}
	}
}
