package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/plateping/api/internal/application/guard"
	"github.com/plateping/api/internal/domain"
	"github.com/plateping/api/internal/infrastructure/kv"
	"github.com/plateping/api/internal/infrastructure/sns"
)

const (
	// DailyCap is the maximum number of codes issued per phone per UTC day.
	DailyCap = 5
	codeTTL  = 300 * time.Second
	// dailyTTL outlives the nominal day so counters expire on their own
	// instead of leaking across the date component of the key.
	dailyTTL = 86400 * time.Second
)

// Engine issues and consumes one-time verification codes per phone number.
// Codes live at verify:{phone} for five minutes and are consumed exactly
// once; issuance is capped per UTC day.
type Engine struct {
	store kv.Store
	guard *guard.Guard
	sms   sns.SMSSender
	now   func() time.Time
}

func NewEngine(store kv.Store, g *guard.Guard, sms sns.SMSSender) *Engine {
	return &Engine{store: store, guard: g, sms: sms, now: time.Now}
}

// Issue generates a fresh 6-digit code for phone, stores it and sends it via
// SMS. It returns the code and the number of issuances left today. When the
// daily cap is already spent it returns domain.ErrRateLimited with
// remaining = 0. Whether the code may be echoed to the HTTP client is the
// transport layer's concern.
func (e *Engine) Issue(ctx context.Context, phone string) (code string, remaining int, err error) {
	dayKey := e.dailyKey(phone)
	count, err := e.dailyCount(ctx, dayKey)
	if err != nil {
		return "", 0, err
	}
	if count >= DailyCap {
		return "", 0, domain.ErrRateLimited
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", 0, fmt.Errorf("generate code: %w", err)
	}
	code = fmt.Sprintf("%06d", n.Int64())

	if err := e.store.Set(ctx, codeKey(phone), code, codeTTL); err != nil {
		return "", 0, err
	}
	count++
	if err := e.store.Set(ctx, dayKey, strconv.Itoa(count), dailyTTL); err != nil {
		return "", 0, err
	}

	// Delivery is fire-and-forget: the code is already committed and the
	// current SMS channel is simulated in most environments.
	if err := e.sms.SendSMS(ctx, phone, "Your verification code: "+code); err != nil {
		slog.Warn("failed to send verification SMS", "phone", phone, "err", err)
	}

	return code, DailyCap - count, nil
}

// Verify consumes the code stored for phone. A correct code deletes the
// stored code and resets the failure counter; a wrong or absent code is
// routed through the brute-force guard, which locks the phone out and purges
// the code after repeated failures.
func (e *Engine) Verify(ctx context.Context, phone, candidate string) error {
	key := codeKey(phone)
	stored, ok, err := e.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok || stored != candidate {
		return e.guard.Fail(ctx, guard.ScopeVerify, phone, key)
	}
	if err := e.store.Delete(ctx, key); err != nil {
		return err
	}
	return e.guard.Reset(ctx, guard.ScopeVerify, phone)
}

// ResetDailyCount deletes today's issuance counter for phone. Exposed only on
// non-production deployments for test tooling.
func (e *Engine) ResetDailyCount(ctx context.Context, phone string) error {
	return e.store.Delete(ctx, e.dailyKey(phone))
}

func (e *Engine) dailyCount(ctx context.Context, key string) (int, error) {
	val, ok, err := e.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt send counter %s: %w", key, err)
	}
	return n, nil
}

func codeKey(phone string) string {
	return "verify:" + phone
}

// dailyKey pins the day component to UTC so the cap window does not drift
// with the host timezone.
func (e *Engine) dailyKey(phone string) string {
	return fmt.Sprintf("verify_count:%s:%s", phone, e.now().UTC().Format("2006-01-02"))
}
