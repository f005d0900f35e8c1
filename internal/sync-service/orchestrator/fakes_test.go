package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/sharpsports"
	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

type fakeProvider struct {
	mu sync.Mutex

	refresh     *sharpsports.RefreshResponse
	refreshErr  map[string]error // por bettor/account id
	refreshes   []sharpsports.Scope
	cid         string
	busyPolls   int // quantas consultas devolvem refreshInProgress
	polls       int
	slips       map[sharpsports.SlipStatus][]sharpsports.BetSlip
	fetchErr    error
	fetchCalls  int
	contextReqs []string
}

func (f *fakeProvider) TriggerRefresh(_ context.Context, scope sharpsports.Scope) (*sharpsports.RefreshResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, scope)
	if err := f.refreshErr[scope.ID]; err != nil {
		return nil, err
	}
	if f.refresh == nil {
		return &sharpsports.RefreshResponse{}, nil
	}
	return f.refresh, nil
}

func (f *fakeProvider) GetContext(_ context.Context, userID, accountID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contextReqs = append(f.contextReqs, userID+"/"+accountID)
	return f.cid, nil
}

func (f *fakeProvider) LinkURL(cid string) string { return "https://ui.test/link/" + cid }

func (f *fakeProvider) GetBettorAccount(_ context.Context, id string) (*sharpsports.BettorAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return &sharpsports.BettorAccount{ID: id, RefreshInProgress: f.polls <= f.busyPolls}, nil
}

func (f *fakeProvider) FetchAllBetSlips(_ context.Context, _ string, status sharpsports.SlipStatus, _ int) ([]sharpsports.BetSlip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.slips[status], nil
}

type betKey struct{ user, slip, bet string }

type fakeStore struct {
	mu          sync.Mutex
	bettors     map[string]string
	bets        map[betKey]repo.BetRow
	profiles    map[string]repo.ProfileStats
	confidence  map[string]repo.ConfidenceScore
	chunkSizes  []int
	failDelete  map[string]bool
	deleteCalls []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bettors:    map[string]string{},
		bets:       map[betKey]repo.BetRow{},
		profiles:   map[string]repo.ProfileStats{},
		confidence: map[string]repo.ConfidenceScore{},
		failDelete: map[string]bool{},
	}
}

func (s *fakeStore) GetBettorID(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bettors[userID]
	if !ok {
		return "", repo.ErrNotFound
	}
	return id, nil
}

func (s *fakeStore) SetBettorID(_ context.Context, userID, bettorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bettors[userID] = bettorID
	return nil
}

func (s *fakeStore) UpsertBets(_ context.Context, rows []repo.BetRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.bets[betKey{r.UserID, r.SlipID, r.BetID}] = r
	}
	return len(rows), nil
}

func (s *fakeStore) InsertBetsChunk(ctx context.Context, rows []repo.BetRow) (int, error) {
	s.mu.Lock()
	s.chunkSizes = append(s.chunkSizes, len(rows))
	s.mu.Unlock()
	return s.UpsertBets(ctx, rows)
}

func (s *fakeStore) DeleteUserBets(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, userID)
	if s.failDelete[userID] {
		return 0, errFake
	}
	var n int64
	for k := range s.bets {
		if k.user == userID {
			delete(s.bets, k)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) ListProcessedBets(_ context.Context, userID string) ([]repo.BetRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repo.BetRow
	for k, r := range s.bets {
		if k.user == userID && r.IsProcessed {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BetID < out[j].BetID })
	return out, nil
}

func (s *fakeStore) UpdateProfileStats(_ context.Context, userID string, st repo.ProfileStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = st
	return nil
}

func (s *fakeStore) UpsertConfidenceScore(_ context.Context, c repo.ConfidenceScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confidence[c.UserID] = c
	return nil
}

func (s *fakeStore) ListLinkedProfiles(_ context.Context, userIDs []string, _ int) ([]repo.LinkedProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[string]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	var out []repo.LinkedProfile
	for u, b := range s.bettors {
		if len(want) == 0 || want[u] {
			out = append(out, repo.LinkedProfile{UserID: u, BettorID: b})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *fakeStore) count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.bets {
		if k.user == userID {
			n++
		}
	}
	return n
}

type fakeSessions struct {
	mu     sync.Mutex
	status map[string]string
}

func (f *fakeSessions) SetLinkStatus(_ context.Context, userID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == nil {
		f.status = map[string]string{}
	}
	f.status[userID] = status
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.BetsSynced
}

func (f *fakePublisher) PublishBetsSynced(_ context.Context, ev events.BetsSynced) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const errFake = fakeErr("boom")

// newTestService monta o serviço com relógio fixo e sleep registrado
func newTestService(p *fakeProvider, st *fakeStore) (*Service, *[]time.Duration) {
	var slept []time.Duration
	var mu sync.Mutex
	svc := &Service{
		Log:       zap.NewNop(),
		Provider:  p,
		Store:     st,
		Sessions:  &fakeSessions{},
		Publisher: &fakePublisher{},
		Opts: Options{
			PollInterval:    2 * time.Second,
			PollTimeout:     30 * time.Second,
			InterUserDelay:  time.Second,
			RateLimitDelay:  5 * time.Second,
			InsertChunkSize: 500,
			MaxPages:        10,
		},
		now: func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
		sleep: func(ctx context.Context, d time.Duration) error {
			mu.Lock()
			slept = append(slept, d)
			mu.Unlock()
			return ctx.Err()
		},
	}
	return svc, &slept
}

func ptr(f float64) *float64 { return &f }

func slip(id, outcome string, net float64, legs ...string) sharpsports.BetSlip {
	s := sharpsports.BetSlip{
		ID:        id,
		Book:      sharpsports.Book{Name: "FanDuel"},
		Status:    "completed",
		Outcome:   outcome,
		AtRisk:    10000,
		ToWin:     9091,
		NetProfit: ptr(net),
	}
	for _, l := range legs {
		s.Bets = append(s.Bets, sharpsports.Bet{
			ID:          l,
			Type:        "spread",
			Proposition: "spread",
			Position:    "Kansas City Chiefs -3.5",
			Event: &sharpsports.Event{
				Name:           "Bills @ Chiefs",
				Sport:          "Football",
				League:         "NFL",
				ContestantHome: &sharpsports.Contestant{FullName: "Kansas City Chiefs"},
				ContestantAway: &sharpsports.Contestant{FullName: "Buffalo Bills"},
			},
		})
	}
	return s
}
