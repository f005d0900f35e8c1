package sharpsports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://api.sharpsports.io"
	DefaultUIBaseURL = "https://ui.sharpsports.io"

	defaultPageSize  = 100
	defaultRateLimit = 5.0 // requisições por segundo
	defaultBurst     = 5
)

// backoff fixo das leituras de betSlips: 3 tentativas, esperando 0ms, 1000ms e 2500ms antes de cada uma
var defaultFetchBackoff = []time.Duration{0, 1000 * time.Millisecond, 2500 * time.Millisecond}

// ScopeKind define se o refresh vale para o bettor inteiro ou uma única conta
type ScopeKind int

const (
	ScopeBettor ScopeKind = iota
	ScopeAccount
)

// Scope é o alvo de um refresh
type Scope struct {
	Kind ScopeKind
	ID   string
}

func BettorScope(bettorID string) Scope   { return Scope{Kind: ScopeBettor, ID: bettorID} }
func AccountScope(accountID string) Scope { return Scope{Kind: ScopeAccount, ID: accountID} }

func (s Scope) refreshPath() string {
	if s.Kind == ScopeAccount {
		return "/v1/bettorAccounts/" + url.PathEscape(s.ID) + "/refresh"
	}
	return "/v1/bettors/" + url.PathEscape(s.ID) + "/refresh"
}

// Client é o wrapper HTTP da API SharpSports.
// Chave pública para refresh/context, chave privada para leitura de betSlips.
type Client struct {
	baseURL    string
	uiBaseURL  string
	publicKey  string
	privateKey string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
	backoff    []time.Duration
}

// ClientOption configura o client
type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithUIBaseURL(u string) ClientOption {
	return func(c *Client) { c.uiBaseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithFetchBackoff troca os atrasos fixos entre tentativas (testes usam zeros)
func WithFetchBackoff(delays ...time.Duration) ClientOption {
	return func(c *Client) {
		if len(delays) > 0 {
			c.backoff = delays
		}
	}
}

func NewClient(publicKey, privateKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		uiBaseURL:  DefaultUIBaseURL,
		publicKey:  publicKey,
		privateKey: privateKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		pageSize:   defaultPageSize,
		backoff:    defaultFetchBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageSize é o tamanho de página usado no page-walking
func (c *Client) PageSize() int { return c.pageSize }

// TriggerRefresh dispara um POST de refresh no escopo informado.
// Não-2xx vira *APIError classificado pelo status.
func (c *Client) TriggerRefresh(ctx context.Context, scope Scope) (*RefreshResponse, error) {
	var out RefreshResponse
	if err := c.do(ctx, http.MethodPost, scope.refreshPath(), c.publicKey, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetContext cria um contexto de UI e devolve o cid usado nas URLs de OTP/re-link
func (c *Client) GetContext(ctx context.Context, userID, bettorAccountID string) (string, error) {
	var out contextResponse
	body := contextRequest{InternalID: userID, BettorAccountID: bettorAccountID}
	if err := c.do(ctx, http.MethodPost, "/v1/context", c.publicKey, nil, body, &out); err != nil {
		return "", err
	}
	if out.CID == "" {
		return "", fmt.Errorf("sharpsports context: empty cid")
	}
	return out.CID, nil
}

// LinkURL monta a URL de UI para um contexto (OTP ou re-link)
func (c *Client) LinkURL(cid string) string {
	return c.uiBaseURL + "/link/" + url.PathEscape(cid)
}

// GetBettorAccount consulta o estado de uma conta vinculada
func (c *Client) GetBettorAccount(ctx context.Context, accountID string) (*BettorAccount, error) {
	var out BettorAccount
	if err := c.do(ctx, http.MethodGet, "/v1/bettorAccounts/"+url.PathEscape(accountID), c.privateKey, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchBetSlips lê uma página de betSlips (single / straight).
// Tenta len(backoff) vezes com atrasos fixos; depois falha com erro embrulhado.
func (c *Client) FetchBetSlips(ctx context.Context, bettorID string, status SlipStatus, page int) ([]BetSlip, error) {
	q := url.Values{}
	q.Set("status", string(status))
	q.Set("type", "single")
	q.Set("betType", "straight")
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("page", strconv.Itoa(page))
	path := "/v1/bettors/" + url.PathEscape(bettorID) + "/betSlips"

	var lastErr error
	for _, delay := range c.backoff {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		var out []BetSlip
		err := c.do(ctx, http.MethodGet, path, c.privateKey, q, nil, &out)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("fetch betSlips bettor=%s status=%s page=%d after %d attempts: %w",
		bettorID, status, page, len(c.backoff), lastErr)
}

// FetchAllBetSlips avança página a página até vir uma página curta ou atingir maxPages
func (c *Client) FetchAllBetSlips(ctx context.Context, bettorID string, status SlipStatus, maxPages int) ([]BetSlip, error) {
	if maxPages <= 0 {
		maxPages = 1
	}
	var all []BetSlip
	for page := 1; page <= maxPages; page++ {
		slips, err := c.FetchBetSlips(ctx, bettorID, status, page)
		if err != nil {
			return nil, err
		}
		all = append(all, slips...)
		if len(slips) < c.pageSize {
			break
		}
	}
	return all, nil
}

func (c *Client) do(ctx context.Context, method, path, key string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sharpsports %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("sharpsports %s %s: read body: %w", method, path, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return newAPIError(method+" "+path, res.StatusCode, raw, res.Header)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("sharpsports %s %s: decode: %w", method, path, err)
	}
	return nil
}
