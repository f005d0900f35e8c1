// Package simulator é um stand-in local da API SharpSports para desenvolvimento
package simulator

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/sharpsports"
)

// Buckets aceitos em RefreshState
var refreshBuckets = map[string]bool{
	"success": true, "otpRequired": true, "unverified": true, "noAccess": true,
	"rateLimited": true, "isUnverifiable": true, "bookInactive": true,
	"bookRegionInactive": true, "authParameterRequired": true, "extensionUpdateRequired": true,
}

// Server simula refresh, context, bettorAccounts e betSlips
type Server struct {
	Log          *zap.Logger
	RefreshState string // bucket forçado em todo refresh ("" = success)
	// chamadas que um refresh fica "em andamento" antes de concluir
	RefreshPolls int

	// Requests conta chamadas por endpoint e status (opcional)
	Requests *prometheus.CounterVec

	mu       sync.Mutex
	inFlight map[string]int // accountID -> polls restantes
	now      func() time.Time
}

func NewServer(log *zap.Logger, refreshState string) *Server {
	return &Server{Log: log, RefreshState: refreshState, RefreshPolls: 1, inFlight: map[string]int{}}
}

// NewRequestsCounter cria o contador usado em Server.Requests
func NewRequestsCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sharpsports_sim_requests_total",
		Help: "requisições atendidas pelo simulador",
	}, []string{"endpoint", "status"})
	reg.MustRegister(c)
	return c
}

// Router monta as rotas /v1 no mesmo formato da API real
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Post("/bettors/{id}/refresh", s.refresh)
		r.Post("/bettorAccounts/{id}/refresh", s.refresh)
		r.Post("/context", s.context)
		r.Get("/bettorAccounts/{id}", s.bettorAccount)
		r.Get("/bettors/{id}/betSlips", s.betSlips)
	})
	return r
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !authorized(r) {
		s.reply(w, "refresh", http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
		return
	}
	account := accountFor(id)
	bucket := s.RefreshState
	if !refreshBuckets[bucket] {
		bucket = "success"
	}
	if bucket == "success" {
		s.mu.Lock()
		s.inFlight[account] = s.RefreshPolls
		s.mu.Unlock()
	}
	s.Log.Debug("simulated refresh", zap.String("id", id), zap.String("bucket", bucket))
	s.reply(w, "refresh", http.StatusOK, map[string][]string{bucket: {account}})
}

func (s *Server) context(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InternalID string `json:"internalId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InternalID == "" {
		s.reply(w, "context", http.StatusBadRequest, map[string]string{"detail": "internalId required"})
		return
	}
	s.reply(w, "context", http.StatusOK, map[string]string{"cid": "CID_" + uuid.NewString()[:8]})
}

func (s *Server) bettorAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	left := s.inFlight[id]
	if left > 0 {
		s.inFlight[id] = left - 1
	}
	s.mu.Unlock()

	now := s.clock()
	s.reply(w, "bettorAccount", http.StatusOK, sharpsports.BettorAccount{
		ID:                id,
		Book:              sharpsports.Book{ID: "BOOK_FD", Name: "FanDuel", Abbr: "fd"},
		Verified:          true,
		Access:            true,
		RefreshInProgress: left > 0,
		LatestRefreshTime: &now,
	})
}

func (s *Server) betSlips(w http.ResponseWriter, r *http.Request) {
	bettor := chi.URLParam(r, "id")
	q := r.URL.Query()
	status := sharpsports.SlipStatus(q.Get("status"))
	if status != sharpsports.StatusPending && status != sharpsports.StatusCompleted {
		s.reply(w, "betSlips", http.StatusBadRequest, map[string]string{"detail": "invalid status"})
		return
	}
	limit := atoiDefault(q.Get("limit"), 100)
	page := atoiDefault(q.Get("page"), 1)

	all := slipsFor(bettor, accountFor(bettor), status, s.clock().Truncate(time.Hour))
	from := min((page-1)*limit, len(all))
	to := min(from+limit, len(all))
	s.reply(w, "betSlips", http.StatusOK, all[from:to])
}

func (s *Server) reply(w http.ResponseWriter, endpoint string, status int, v any) {
	if s.Requests != nil {
		s.Requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// accountFor deriva a conta do bettor (BTTR_x -> BACT_x); ids de conta passam direto
func accountFor(id string) string {
	if rest, ok := strings.CutPrefix(id, "BTTR_"); ok {
		return "BACT_" + rest
	}
	return id
}

// qualquer "Token ..." não vazio é aceito
func authorized(r *http.Request) bool {
	h := r.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(h, "Token ")
	return ok && tok != ""
}

func atoiDefault(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
