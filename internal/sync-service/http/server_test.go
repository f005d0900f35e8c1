package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/billing/stripe"
	"github.com/radieske/fade-sync-platform/internal/shared/auth"
	"github.com/radieske/fade-sync-platform/internal/shared/session"
	"github.com/radieske/fade-sync-platform/internal/sharpsports"
	"github.com/radieske/fade-sync-platform/internal/sync-service/dto"
	"github.com/radieske/fade-sync-platform/internal/sync-service/orchestrator"
	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
	"github.com/radieske/fade-sync-platform/internal/sync-service/stats"
	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

var (
	fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier = auth.Verifier{Secret: []byte("jwt-secret")}
)

type fakeSyncer struct {
	reqs      []orchestrator.Request
	res       orchestrator.Result
	err       error
	bulkUsers []string
	recalc    []string
}

func (f *fakeSyncer) SyncUser(_ context.Context, req orchestrator.Request) (orchestrator.Result, error) {
	f.reqs = append(f.reqs, req)
	return f.res, f.err
}

func (f *fakeSyncer) ClearAndSyncAll(_ context.Context, userIDs []string) (orchestrator.BulkReport, error) {
	f.bulkUsers = userIDs
	return orchestrator.BulkReport{Users: []orchestrator.UserReport{{UserID: "u1", Result: orchestrator.BulkOK}}, Succeeded: 1}, nil
}

func (f *fakeSyncer) Recalculate(_ context.Context, userID string) (stats.Stats, stats.Confidence, error) {
	f.recalc = append(f.recalc, userID)
	return stats.Stats{TotalBets: 8, WinRate: 25}, stats.Confidence{Score: 75, Statline: "He's 2-6 betting on NFL", GradedBets: 8,
		Worst: stats.Category{Kind: stats.CategorySport, Name: "NFL", WorstBetID: "b5"}}, nil
}

type fakeSessions struct {
	sess     session.Session
	otpMarks []time.Time
}

func (f *fakeSessions) Load(_ context.Context, userID string) (session.Session, error) {
	s := f.sess
	s.UserID = userID
	return s, nil
}

func (f *fakeSessions) MarkOTPVerified(_ context.Context, _ string, at time.Time) error {
	f.otpMarks = append(f.otpMarks, at)
	return nil
}

type fakeRead struct {
	profileReads int
	profiles     map[string]repo.PublicProfile
	confidence   map[string]repo.ConfidenceScore
}

func (f *fakeRead) GetPublicProfile(_ context.Context, userID string) (repo.PublicProfile, error) {
	f.profileReads++
	p, ok := f.profiles[userID]
	if !ok {
		return repo.PublicProfile{}, repo.ErrNotFound
	}
	return p, nil
}

func (f *fakeRead) GetConfidenceScore(_ context.Context, userID string) (repo.ConfidenceScore, error) {
	c, ok := f.confidence[userID]
	if !ok {
		return repo.ConfidenceScore{}, repo.ErrNotFound
	}
	return c, nil
}

func (f *fakeRead) ListRecentBets(_ context.Context, userID string, _ int) ([]repo.BetRow, error) {
	return []repo.BetRow{{UserID: userID, SlipID: "S1", BetID: "B1", Result: repo.ResultLoss, UnitsRisked: 1, UnitsWonLost: -1}}, nil
}

type fakeCache struct {
	data        map[string][]byte
	invalidated []string
}

func (f *fakeCache) GetPublic(_ context.Context, userID string, dst any) (bool, error) {
	b, ok := f.data[userID]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (f *fakeCache) SetPublic(_ context.Context, userID string, v any) error {
	b, _ := json.Marshal(v)
	f.data[userID] = b
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, userID string) error {
	f.invalidated = append(f.invalidated, userID)
	delete(f.data, userID)
	return nil
}

func (f *fakeCache) GetConfidence(context.Context, string) (events.Confidence, bool, error) {
	return events.Confidence{}, false, nil
}

type fakeBilling struct {
	seen    map[string]bool
	updates []repo.Subscription
	missing bool
}

func (f *fakeBilling) MarkStripeEvent(_ context.Context, id, _ string) (bool, error) {
	if f.seen[id] {
		return false, nil
	}
	f.seen[id] = true
	return true, nil
}

func (f *fakeBilling) UpdateSubscription(_ context.Context, s repo.Subscription) (string, error) {
	if f.missing {
		return "", repo.ErrNotFound
	}
	f.updates = append(f.updates, s)
	if s.UserID != "" {
		return s.UserID, nil
	}
	return "u-from-customer", nil
}

type fakeSubs struct{ events []events.SubscriptionChanged }

func (f *fakeSubs) PublishSubscriptionChanged(_ context.Context, e events.SubscriptionChanged) error {
	f.events = append(f.events, e)
	return nil
}

type fixture struct {
	api      *API
	sync     *fakeSyncer
	sessions *fakeSessions
	read     *fakeRead
	cache    *fakeCache
	billing  *fakeBilling
	subs     *fakeSubs
	handler  http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		sync:     &fakeSyncer{res: orchestrator.Result{Status: orchestrator.StatusSuccess, RowsSynced: 3}},
		sessions: &fakeSessions{sess: session.Session{LinkStatus: session.LinkLinked}},
		read: &fakeRead{
			profiles:   map[string]repo.PublicProfile{"u1": {UserID: "u1", DisplayName: "sharp", Stats: repo.ProfileStats{TotalBets: 8, WinRate: 25}}},
			confidence: map[string]repo.ConfidenceScore{"u1": {UserID: "u1", Score: 75, Statline: "He's 2-6 betting on NFL", WorstCategory: "sport:NFL"}},
		},
		cache:   &fakeCache{data: map[string][]byte{}},
		billing: &fakeBilling{seen: map[string]bool{}},
		subs:    &fakeSubs{},
	}
	f.api = &API{
		Log:      zap.NewNop(),
		Sync:     f.sync,
		Sessions: f.sessions,
		Read:     f.read,
		Cache:    f.cache,
		Billing:  f.billing,
		Subs:     f.subs,
		Opts: Options{
			AdminSecret:         "admin",
			JWT:                 verifier,
			StripeWebhookSecret: "whsec_test",
			OTPSkipWindow:       5 * time.Minute,
		},
		now: func() time.Time { return fixedNow },
	}
	f.handler = f.api.Router()
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, sub, role string) map[string]string {
	t.Helper()
	tok, err := verifier.Sign(sub, sub+"@test", role, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]string{"Authorization": "Bearer " + tok}
}

func TestSyncBetsRequiresToken(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/functions/v1/sync-bets", `{}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/functions/v1/sync-bets", `{}`, map[string]string{"Authorization": "Bearer nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token code = %d", rec.Code)
	}
	if len(f.sync.reqs) != 0 {
		t.Fatal("sync should not run")
	}
}

func TestSyncBetsSuccess(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/functions/v1/sync-bets",
		`{"bettorId":"BTTR_1","bettorAccountId":"BACT_1","forceRefresh":true}`, bearer(t, "u1", "authenticated"))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d body=%s", rec.Code, rec.Body)
	}
	want := orchestrator.Request{UserID: "u1", BettorID: "BTTR_1", BettorAccountID: "BACT_1", SkipRefresh: true}
	if len(f.sync.reqs) != 1 || f.sync.reqs[0] != want {
		t.Fatalf("reqs = %+v", f.sync.reqs)
	}
	var body dto.SyncBetsResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if !body.Success || body.RowsSynced != 3 || body.Stats == nil || body.Confidence == nil {
		t.Fatalf("body = %+v", body)
	}
	if len(f.cache.invalidated) != 1 || f.cache.invalidated[0] != "u1" {
		t.Fatalf("invalidated = %v", f.cache.invalidated)
	}
}

func TestSyncBetsSkipsRefreshAfterRecentOTP(t *testing.T) {
	tests := []struct {
		name     string
		otpAt    time.Time
		wantSkip bool
	}{
		{"recent", fixedNow.Add(-2 * time.Minute), true},
		{"stale", fixedNow.Add(-10 * time.Minute), false},
		{"never", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.sessions.sess.OTPVerifiedAt = tt.otpAt
			rec := f.do(t, http.MethodPost, "/functions/v1/sync-bets", "", bearer(t, "u1", "authenticated"))
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %d", rec.Code)
			}
			if f.sync.reqs[0].SkipRefresh != tt.wantSkip {
				t.Fatalf("skip = %v", f.sync.reqs[0].SkipRefresh)
			}
		})
	}
}

func TestSyncBetsActionStates(t *testing.T) {
	f := newFixture()
	f.sync.res = orchestrator.Result{Status: "otp_required", ActionURL: "https://ui.test/link/CID", AccountID: "BACT_1"}
	rec := f.do(t, http.MethodPost, "/functions/v1/sync-bets", `{}`, bearer(t, "u1", "authenticated"))

	var body dto.SyncBetsResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusOK || body.Success || body.OTPURL != "https://ui.test/link/CID" || body.RelinkURL != "" {
		t.Fatalf("code=%d body=%+v", rec.Code, body)
	}
	if len(f.cache.invalidated) != 0 {
		t.Fatal("cache should stay on non-success states")
	}

	f.sync.res = orchestrator.Result{Status: "no_access", ActionURL: "https://ui.test/link/CID"}
	rec = f.do(t, http.MethodPost, "/functions/v1/sync-bets", `{}`, bearer(t, "u1", "authenticated"))
	body = dto.SyncBetsResponse{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.RelinkURL == "" || body.OTPURL != "" {
		t.Fatalf("body = %+v", body)
	}
}

func TestSyncBetsErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		substr string
	}{
		{"rate limited", &sharpsports.APIError{Kind: sharpsports.KindRateLimited, Status: 429, RetryAfter: 7 * time.Second}, http.StatusTooManyRequests, `"retryAfter":7`},
		{"no bettor", orchestrator.ErrNoBettor, http.StatusBadRequest, "no linked sportsbook"},
		{"provider failure", &sharpsports.APIError{Kind: sharpsports.KindFailure, Status: 502, Endpoint: "GET /v1/bettors/x/betSlips"}, http.StatusInternalServerError, "betSlips"},
		{"db failure", errors.New("upsert bets: connection refused"), http.StatusInternalServerError, "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.sync.err = tt.err
			rec := f.do(t, http.MethodPost, "/functions/v1/sync-bets", `{}`, bearer(t, "u1", "authenticated"))
			if rec.Code != tt.code || !strings.Contains(rec.Body.String(), tt.substr) {
				t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
			}
		})
	}
}

func TestSyncBetsOtherUser(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/functions/v1/sync-bets", `{"userId":"u2"}`, bearer(t, "u1", "authenticated"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code = %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/functions/v1/sync-bets", `{"userId":"u2"}`, bearer(t, "svc", "service_role"))
	if rec.Code != http.StatusOK || f.sync.reqs[0].UserID != "u2" {
		t.Fatalf("code=%d reqs=%+v", rec.Code, f.sync.reqs)
	}
}

func TestClearAndSyncAdminSecret(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/functions/v1/clear-and-sync-bets", `{}`, map[string]string{"X-Admin-Secret": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/functions/v1/clear-and-sync-bets", `{"userIds":["u1"]}`, map[string]string{"X-Admin-Secret": "admin"})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if len(f.sync.bulkUsers) != 1 || f.sync.bulkUsers[0] != "u1" {
		t.Fatalf("bulk users = %v", f.sync.bulkUsers)
	}
	if !strings.Contains(rec.Body.String(), `"succeeded":1`) {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestCalculateStatline(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/functions/v1/calculate-bet-statline", "", bearer(t, "u1", "authenticated"))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body dto.StatlineResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Confidence.Statline != "He's 2-6 betting on NFL" || body.Confidence.WorstCategory != "sport:NFL" || body.Confidence.WorstBetID != "b5" {
		t.Fatalf("body = %+v", body)
	}
	if len(f.sync.recalc) != 1 || f.sync.recalc[0] != "u1" {
		t.Fatalf("recalc = %v", f.sync.recalc)
	}
}

func TestPublicBettingDataUsesCache(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/functions/v1/get-public-betting-data?userId=u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body dto.PublicBettingData
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Profile.DisplayName != "sharp" || body.Confidence == nil || body.Confidence.Score != 75 || len(body.RecentBets) != 1 {
		t.Fatalf("body = %+v", body)
	}

	rec = f.do(t, http.MethodGet, "/functions/v1/get-public-betting-data?userId=u1", "", nil)
	if rec.Code != http.StatusOK || f.read.profileReads != 1 {
		t.Fatalf("second call should hit cache: code=%d reads=%d", rec.Code, f.read.profileReads)
	}
}

func TestPublicBettingDataErrors(t *testing.T) {
	f := newFixture()
	if rec := f.do(t, http.MethodGet, "/functions/v1/get-public-betting-data", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing userId code = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/functions/v1/get-public-betting-data?userId=ghost", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user code = %d", rec.Code)
	}
}

func TestOTPVerified(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/functions/v1/otp-verified", "", bearer(t, "u1", "authenticated"))
	if rec.Code != http.StatusOK || len(f.sessions.otpMarks) != 1 || !f.sessions.otpMarks[0].Equal(fixedNow) {
		t.Fatalf("code=%d marks=%v", rec.Code, f.sessions.otpMarks)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodOptions, "/functions/v1/sync-bets", "", nil)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("code=%d headers=%v", rec.Code, rec.Header())
	}
}

func TestStripeWebhook(t *testing.T) {
	f := newFixture()
	payload := `{"id":"evt_1","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_1","status":"active"}}}`
	headers := map[string]string{"Stripe-Signature": stripe.SignatureHeader([]byte(payload), "whsec_test", time.Now())}

	rec := f.do(t, http.MethodPost, "/functions/v1/stripe-webhook", payload, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
	if len(f.billing.updates) != 1 || f.billing.updates[0].CustomerID != "cus_1" || f.billing.updates[0].Status != "active" {
		t.Fatalf("updates = %+v", f.billing.updates)
	}
	if len(f.subs.events) != 1 || f.subs.events[0].UserID != "u-from-customer" || f.subs.events[0].StripeEventID != "evt_1" {
		t.Fatalf("events = %+v", f.subs.events)
	}

	// reentrega do mesmo evento não publica de novo
	rec = f.do(t, http.MethodPost, "/functions/v1/stripe-webhook", payload, headers)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "duplicate") || len(f.subs.events) != 1 {
		t.Fatalf("duplicate: code=%d body=%s events=%d", rec.Code, rec.Body, len(f.subs.events))
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture()
	payload := `{"id":"evt_1","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_1","status":"active"}}}`
	headers := map[string]string{"Stripe-Signature": stripe.SignatureHeader([]byte(payload), "other", time.Now())}

	rec := f.do(t, http.MethodPost, "/functions/v1/stripe-webhook", payload, headers)
	if rec.Code != http.StatusBadRequest || len(f.billing.updates) != 0 {
		t.Fatalf("code=%d updates=%d", rec.Code, len(f.billing.updates))
	}
}

func TestStripeWebhookIgnoredAndUnknownProfile(t *testing.T) {
	f := newFixture()
	ignored := `{"id":"evt_9","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`
	rec := f.do(t, http.MethodPost, "/functions/v1/stripe-webhook", ignored,
		map[string]string{"Stripe-Signature": stripe.SignatureHeader([]byte(ignored), "whsec_test", time.Now())})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ignored") {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}

	f.billing.missing = true
	payload := `{"id":"evt_10","type":"invoice.payment_failed","data":{"object":{"customer":"cus_x","subscription":"sub_x"}}}`
	rec = f.do(t, http.MethodPost, "/functions/v1/stripe-webhook", payload,
		map[string]string{"Stripe-Signature": stripe.SignatureHeader([]byte(payload), "whsec_test", time.Now())})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"matched":false`) || len(f.subs.events) != 0 {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
}
