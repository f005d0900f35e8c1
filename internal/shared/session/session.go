package session

import (
	"context"
	"time"
)

// Estados de vínculo da conta na casa de apostas
const (
	LinkUnknown        = "unknown"
	LinkLinked         = "linked"
	LinkOTPRequired    = "otp_required"
	LinkRelinkRequired = "relink_required"
	LinkInactive       = "inactive"
)

// Session substitui as flags soltas do cliente (verificação OTP, status do vínculo).
// Montada pelo middleware de auth e carregada no contexto da requisição.
type Session struct {
	UserID        string
	Email         string
	Role          string // "authenticated" | "service_role"
	LinkStatus    string
	OTPVerifiedAt time.Time
}

// IsService indica chamada com a service key (pode agir em nome de outro usuário)
func (s Session) IsService() bool { return s.Role == "service_role" }

// OTPRecentlyVerified diz se o OTP foi concluído dentro da janela informada
func (s Session) OTPRecentlyVerified(now time.Time, window time.Duration) bool {
	if s.OTPVerifiedAt.IsZero() || window <= 0 {
		return false
	}
	return now.Sub(s.OTPVerifiedAt) <= window
}

type ctxKey struct{}

// WithSession guarda a sessão no contexto
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext devolve a sessão da requisição, se houver
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
