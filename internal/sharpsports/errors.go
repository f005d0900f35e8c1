package sharpsports

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"
)

// ErrorKind classifica respostas não-2xx do provedor
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindNotFound     ErrorKind = "not_found"
	KindRateLimited  ErrorKind = "rate_limited"
	KindFailure      ErrorKind = "failure"
)

var (
	ErrUnauthorized = errors.New("sharpsports: unauthorized")
	ErrForbidden    = errors.New("sharpsports: forbidden")
	ErrNotFound     = errors.New("sharpsports: not found")
	ErrRateLimited  = errors.New("sharpsports: rate limited")
	ErrFailure      = errors.New("sharpsports: request failed")
)

// APIError carrega endpoint, status e corpo da resposta de erro
type APIError struct {
	Kind       ErrorKind
	Endpoint   string
	Status     int
	Body       string
	RetryAfter time.Duration // só em 429
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sharpsports %s: %s status=%d body=%s", e.Kind, e.Endpoint, e.Status, e.Body)
}

// Unwrap permite errors.Is(err, ErrRateLimited) etc.
func (e *APIError) Unwrap() error {
	switch e.Kind {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindRateLimited:
		return ErrRateLimited
	default:
		return ErrFailure
	}
}

func kindFor(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindFailure
	}
}

func newAPIError(endpoint string, status int, body []byte, header http.Header) *APIError {
	e := &APIError{
		Kind:     kindFor(status),
		Endpoint: endpoint,
		Status:   status,
		Body:     truncate(string(body), 512),
	}
	if e.Kind == KindRateLimited {
		e.RetryAfter = parseRetryAfter(header.Get("Retry-After"))
	}
	return e
}

// parseRetryAfter aceita segundos ou data HTTP
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// KindOf devolve o tipo do erro do provedor ou "" se não for APIError
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// truncate corta em até n bytes sem quebrar um rune no meio
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
