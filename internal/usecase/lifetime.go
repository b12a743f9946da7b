package usecase

import (
	"context"
	"fmt"
	"time"
)

const (
	ledgerClose = 5 * time.Second

	// lifetimeLedgers is the renewal window expressed in closed ledgers.
	lifetimeLedgers = 100000
)

// Lifetime is the storage renewal policy. After every mutation each registry
// key whose remaining lifetime is below Threshold is extended to ExtendTo.
type Lifetime struct {
	Threshold time.Duration
	ExtendTo  time.Duration
}

// DefaultLifetime returns the policy used when none is configured.
func DefaultLifetime() Lifetime {
	return Lifetime{
		Threshold: lifetimeLedgers * ledgerClose,
		ExtendTo:  lifetimeLedgers * ledgerClose,
	}
}

// renew extends the lifetime of the touched mapping key and of the total counter.
func (r *Registry) renew(ctx context.Context, key string) error {
	for _, k := range []string{key, totalKey} {
		if err := r.store.ExtendTTL(ctx, k, r.lifetime.Threshold, r.lifetime.ExtendTo); err != nil {
			return fmt.Errorf("failed to extend lifetime of %q: %w", k, err)
		}
	}

	return nil
}
