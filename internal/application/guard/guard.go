package guard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/plateping/api/internal/domain"
	"github.com/plateping/api/internal/infrastructure/kv"
)

// Scope names the credential flow a failure counter belongs to. Each
// (scope, subject) pair tracks its own consecutive-failure count.
type Scope string

const (
	ScopeVerify        Scope = "verify"
	ScopePassword      Scope = "password"
	ScopePlatePassword Scope = "plate_password"
)

const (
	// MaxAttempts consecutive failures lock the subject out.
	MaxAttempts = 5
	// Window is the TTL of the failure counter, refreshed on each failure.
	Window = 300 * time.Second
)

// Guard is the lockout policy shared by every flow that checks a secret:
// OTP codes, phone passwords and plate passwords all run failures through
// the same counter state machine.
type Guard struct {
	store kv.Store
}

func New(store kv.Store) *Guard {
	return &Guard{store: store}
}

// Fail records a failed check for (scope, subject). When the consecutive
// failure count reaches MaxAttempts it purges secretKey (if non-empty) and
// the counter itself, and returns domain.ErrLocked: the subject must restart
// the flow from issuance. Below the threshold it returns a MismatchError
// carrying the remaining attempts. Counter-store failures propagate as-is.
func (g *Guard) Fail(ctx context.Context, scope Scope, subject, secretKey string) error {
	key := counterKey(scope, subject)
	count, err := g.count(ctx, key)
	if err != nil {
		return err
	}
	count++

	if count >= MaxAttempts {
		if secretKey != "" {
			if err := g.store.Delete(ctx, secretKey); err != nil {
				return err
			}
		}
		if err := g.store.Delete(ctx, key); err != nil {
			return err
		}
		return domain.ErrLocked
	}

	if err := g.store.Set(ctx, key, strconv.Itoa(count), Window); err != nil {
		return err
	}
	return &domain.MismatchError{Remaining: MaxAttempts - count}
}

// Reset clears the failure counter for (scope, subject) after a successful
// check.
func (g *Guard) Reset(ctx context.Context, scope Scope, subject string) error {
	return g.store.Delete(ctx, counterKey(scope, subject))
}

func (g *Guard) count(ctx context.Context, key string) (int, error) {
	val, ok, err := g.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt failure counter %s: %w", key, err)
	}
	return n, nil
}

func counterKey(scope Scope, subject string) string {
	return string(scope) + "_error:" + subject
}
