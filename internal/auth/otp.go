// AngelaMos | 2026
// otp.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/ledger-backend/internal/config"
	"github.com/carterperez-dev/ledger-backend/internal/core"
)

var (
	ErrOTPInvalid   = errors.New("invalid or expired code")
	ErrOTPExhausted = errors.New("too many attempts")
)

// attemptScript bumps the attempt counter only if the challenge still
// exists, so an expired key is never recreated without a TTL.
var attemptScript = redis.NewScript(`
local hash = redis.call('HGET', KEYS[1], 'hash')
if not hash then
	return {}
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return {hash, attempts}
`)

// OTPStore keeps one outstanding password-reset code per email in Redis.
// Only a hash of the code is stored.
type OTPStore struct {
	rdb         redis.UniversalClient
	ttl         time.Duration
	length      int
	maxAttempts int
}

func NewOTPStore(rdb redis.UniversalClient, cfg config.OTPConfig) *OTPStore {
	return &OTPStore{
		rdb:         rdb,
		ttl:         cfg.TTL,
		length:      cfg.Length,
		maxAttempts: cfg.MaxAttempts,
	}
}

func otpKey(email string) string {
	return "otp:reset:" + core.HashToken(strings.ToLower(strings.TrimSpace(email)))
}

// Issue replaces any outstanding code for email.
func (s *OTPStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := core.GenerateNumericCode(s.length)
	if err != nil {
		return "", fmt.Errorf("issue otp: %w", err)
	}

	key := otpKey(email)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "hash", core.HashToken(code), "attempts", 0)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("issue otp: %w", err)
	}

	return code, nil
}

// Verify consumes the code on success. Every call counts as an attempt;
// once maxAttempts is exceeded the challenge is discarded.
func (s *OTPStore) Verify(ctx context.Context, email, code string) error {
	key := otpKey(email)

	res, err := attemptScript.Run(ctx, s.rdb, []string{key}).Slice()
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	if len(res) != 2 {
		return ErrOTPInvalid
	}

	hash, _ := res[0].(string)
	attempts, _ := res[1].(int64)

	if attempts > int64(s.maxAttempts) {
		s.discard(ctx, key)
		return ErrOTPExhausted
	}

	if !core.CompareTokenHash(code, hash) {
		return ErrOTPInvalid
	}

	s.discard(ctx, key)
	return nil
}

func (s *OTPStore) discard(ctx context.Context, key string) {
	//nolint:errcheck // the key expires on its own if this fails
	_ = s.rdb.Del(ctx, key).Err()
}
