package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/shared/session"
	"github.com/radieske/fade-sync-platform/internal/sharpsports"
	"github.com/radieske/fade-sync-platform/internal/sync-service/dto"
	"github.com/radieske/fade-sync-platform/internal/sync-service/orchestrator"
	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
	"github.com/radieske/fade-sync-platform/internal/sync-service/stats"
)

// syncBets dispara o sync do usuário autenticado
func (a *API) syncBets(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	var req dto.SyncBetsRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	userID, ok := targetUser(sess, req.UserID)
	if !ok {
		writeError(w, http.StatusForbidden, "cannot sync another user")
		return
	}

	// OTP recém concluído: não dispara outro refresh
	skip := req.SkipRefresh
	if !skip && userID == sess.UserID && sess.OTPRecentlyVerified(a.clock(), a.Opts.OTPSkipWindow) {
		skip = true
	}

	res, err := a.Sync.SyncUser(r.Context(), orchestrator.Request{
		UserID:          userID,
		BettorID:        req.BettorID,
		BettorAccountID: req.BettorAccountID,
		SkipRefresh:     skip,
	})
	if err != nil {
		a.writeSyncError(w, userID, err)
		return
	}

	if res.Status == orchestrator.StatusSuccess && a.Cache != nil {
		if err := a.Cache.Invalidate(r.Context(), userID); err != nil {
			a.Log.Warn("public cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, toSyncResponse(res))
}

func (a *API) writeSyncError(w http.ResponseWriter, userID string, err error) {
	var apiErr *sharpsports.APIError
	switch {
	case errors.Is(err, orchestrator.ErrNoBettor):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sharpsports.ErrRateLimited) && errors.As(err, &apiErr):
		writeJSON(w, http.StatusTooManyRequests, dto.ErrorResponse{
			Error:      err.Error(),
			RetryAfter: int(math.Ceil(apiErr.RetryAfter.Seconds())),
		})
	default:
		a.Log.Error("sync failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// clearAndSync roda o bulk (admin)
func (a *API) clearAndSync(w http.ResponseWriter, r *http.Request) {
	var req dto.ClearAndSyncRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	report, err := a.Sync.ClearAndSyncAll(r.Context(), req.UserIDs)
	if err != nil {
		a.Log.Error("clear-and-sync failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if a.Cache != nil {
		for _, u := range report.Users {
			_ = a.Cache.Invalidate(r.Context(), u.UserID)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": report})
}

// calculateStatline recalcula e grava o score a partir das apostas gravadas
func (a *API) calculateStatline(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	var req dto.CalculateStatlineRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	userID, ok := targetUser(sess, req.UserID)
	if !ok {
		writeError(w, http.StatusForbidden, "cannot recalculate another user")
		return
	}

	st, conf, err := a.Sync.Recalculate(r.Context(), userID)
	if err != nil {
		a.Log.Error("statline recalculation failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dto.StatlineResponse{
		Success:    true,
		UserID:     userID,
		Stats:      toStats(st.Profile()),
		Confidence: confidenceDTO(conf),
	})
}

// otpVerified registra o fim do fluxo de 2FA na sessão
func (a *API) otpVerified(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	if sess.UserID == "" {
		writeError(w, http.StatusBadRequest, "user required")
		return
	}
	if err := a.Sessions.MarkOTPVerified(r.Context(), sess.UserID, a.clock()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// publicBettingData expõe perfil, score e apostas recentes, preferencialmente do cache
func (a *API) publicBettingData(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	ctx := r.Context()

	var cached dto.PublicBettingData
	if a.Cache != nil {
		if ok, _ := a.Cache.GetPublic(ctx, userID, &cached); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	prof, err := a.Read.GetPublicProfile(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := dto.PublicBettingData{
		Profile: dto.PublicProfile{
			UserID:      prof.UserID,
			DisplayName: prof.DisplayName,
			Stats:       toStats(prof.Stats),
		},
		RecentBets: []dto.PublicBet{},
	}

	conf, err := a.confidence(r, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out.Confidence = conf

	limit := a.Opts.RecentBetsLimit
	if limit <= 0 {
		limit = 20
	}
	bets, err := a.Read.ListRecentBets(ctx, userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, b := range bets {
		out.RecentBets = append(out.RecentBets, dto.PublicBet{
			SlipID:         b.SlipID,
			BetID:          b.BetID,
			Sportsbook:     b.Sportsbook,
			Event:          b.Event,
			Sport:          b.Sport,
			Position:       b.Position,
			Line:           b.Line,
			BetType:        b.BetType,
			Odds:           b.Odds,
			UnitsRisked:    b.UnitsRisked,
			UnitsWonLost:   b.UnitsWonLost,
			Result:         string(b.Result),
			EventStartTime: b.EventStartTime,
		})
	}

	if a.Cache != nil {
		if err := a.Cache.SetPublic(ctx, userID, out); err != nil {
			a.Log.Warn("public cache set failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// confidence lê do cache do stats-worker e cai para o banco
func (a *API) confidence(r *http.Request, userID string) (*dto.Confidence, error) {
	if a.Cache != nil {
		if c, ok, err := a.Cache.GetConfidence(r.Context(), userID); err == nil && ok {
			return &dto.Confidence{Score: c.Score, WorstCategory: c.WorstCategory, WorstBetID: c.WorstBetID, Statline: c.Statline}, nil
		}
	}
	c, err := a.Read.GetConfidenceScore(r.Context(), userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := toConfidence(c)
	return &out, nil
}

// targetUser resolve o usuário alvo; só service_role pode agir por outro
func targetUser(sess session.Session, requested string) (string, bool) {
	if requested == "" || requested == sess.UserID {
		return sess.UserID, sess.UserID != ""
	}
	return requested, sess.IsService()
}

// decodeOptional aceita corpo vazio
func decodeOptional(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func toSyncResponse(res orchestrator.Result) dto.SyncBetsResponse {
	out := dto.SyncBetsResponse{
		Success:    res.Status == orchestrator.StatusSuccess,
		Status:     res.Status,
		AccountID:  res.AccountID,
		RetryAfter: int(math.Ceil(res.RetryAfter.Seconds())),
	}
	if res.ActionURL != "" {
		if res.Status == (sharpsports.OTPRequired{}).Status() {
			out.OTPURL = res.ActionURL
		} else {
			out.RelinkURL = res.ActionURL
		}
	}
	if out.Success {
		st := toStats(res.Stats.Profile())
		conf := confidenceDTO(res.Confidence)
		out.RowsSynced, out.PendingBets, out.CompletedBets = res.RowsSynced, res.PendingBets, res.CompletedBets
		out.Stats, out.Confidence = &st, &conf
	}
	return out
}

func toStats(s repo.ProfileStats) dto.Stats {
	return dto.Stats{TotalBets: s.TotalBets, WinRate: s.WinRate, ROI: s.ROI, UnitsGained: s.UnitsGained}
}

func toConfidence(c repo.ConfidenceScore) dto.Confidence {
	return dto.Confidence{Score: c.Score, WorstCategory: c.WorstCategory, WorstBetID: c.WorstBetID, Statline: c.Statline}
}

func confidenceDTO(c stats.Confidence) dto.Confidence {
	return toConfidence(c.Record("", time.Time{}))
}
