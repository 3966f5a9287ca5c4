// Package retry runs boundary calls with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Defaults used when a Policy field is zero.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
)

// Class tells whether repeating an operation can duplicate its effect.
type Class int

const (
	// Safe operations only read.
	Safe Class = iota
	// Idempotent operations converge to the same state when repeated.
	Idempotent
	// NonIdempotent operations may apply twice when repeated.
	NonIdempotent
)

func (c Class) String() string {
	switch c {
	case Safe:
		return "safe"
	case Idempotent:
		return "idempotent"
	case NonIdempotent:
		return "non-idempotent"
	default:
		return "unknown"
	}
}

// Policy bounds the attempts of one call. The wait after failed attempt n
// is BaseDelay * 2^(n-1), without jitter.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *slog.Logger
}

// DefaultPolicy returns 3 attempts starting at 500ms.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// For narrows p for an operation class. A non-idempotent call without an
// idempotency key gets exactly one attempt.
func (p Policy) For(class Class, keyed bool) Policy {
	if class == NonIdempotent && !keyed {
		p.MaxAttempts = 1
	}
	return p
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return p
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Duration(math.MaxInt64),
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the context ends
// or the attempts run out. The last error is returned unwrapped.
func Do[T any](ctx context.Context, p Policy, name string, op func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	attempt := 0
	res, err := backoff.Retry(ctx,
		func() (T, error) {
			attempt++
			return op(ctx)
		},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.Logger.Warn("call failed, retrying",
				slog.String("op", name),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", p.MaxAttempts),
				slog.Duration("delay", next),
				slog.String("error", err.Error()),
			)
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return res, err
}
