package session

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldLinkStatus = "sportsbook_link_status"
	fieldOTPAt      = "otp_verified_at"
)

// RedisStore persiste o estado de sessão por usuário em um hash "session:{userID}"
type RedisStore struct {
	R   *redis.Client
	TTL time.Duration
}

func NewRedisStore(r *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{R: r, TTL: ttl}
}

func key(userID string) string { return "session:" + userID }

// Load preenche os campos persistidos; usuário sem hash volta com LinkUnknown
func (s *RedisStore) Load(ctx context.Context, userID string) (Session, error) {
	out := Session{UserID: userID, LinkStatus: LinkUnknown}
	vals, err := s.R.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return out, err
	}
	if v := vals[fieldLinkStatus]; v != "" {
		out.LinkStatus = v
	}
	out.OTPVerifiedAt = parseUnixMs(vals[fieldOTPAt])
	return out, nil
}

// SetLinkStatus grava o último status de vínculo visto no sync
func (s *RedisStore) SetLinkStatus(ctx context.Context, userID, status string) error {
	return s.hset(ctx, userID, fieldLinkStatus, status)
}

// MarkOTPVerified registra a conclusão do fluxo de 2FA
func (s *RedisStore) MarkOTPVerified(ctx context.Context, userID string, at time.Time) error {
	return s.hset(ctx, userID, fieldOTPAt, strconv.FormatInt(at.UnixMilli(), 10))
}

func (s *RedisStore) hset(ctx context.Context, userID, field, value string) error {
	pipe := s.R.TxPipeline()
	pipe.HSet(ctx, key(userID), field, value)
	if s.TTL > 0 {
		pipe.Expire(ctx, key(userID), s.TTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func parseUnixMs(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
