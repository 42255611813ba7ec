package cache

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Version counter keys. Read paths embed the current values in their cache
// keys, so bumping them abandons every previously cached entry at once.
const (
	KeyWagesVersion     = "wages:ver"
	KeyOrgsVersion      = "orgs:ver"
	KeyLocationsVersion = "locations:ver"
)

var versionKeys = []string{KeyWagesVersion, KeyOrgsVersion, KeyLocationsVersion}

var errMissingCounters = errors.New("cache: counter store is required")

// Invalidator bumps the shared cache version counters. One Bump per write
// operation, each key advancing by exactly one, whatever fields changed.
type Invalidator struct {
	counters Counters
	logger   *zap.Logger
}

// NewInvalidator constructs an Invalidator over the provided counter store.
func NewInvalidator(counters Counters, logger *zap.Logger) (*Invalidator, error) {
	if counters == nil {
		return nil, errMissingCounters
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{counters: counters, logger: logger}, nil
}

// Bump increments all three version counters by one. Counters that fail to
// advance are reported joined; the remaining keys are still attempted so the
// counters never drift apart by more than an in-flight failure.
func (i *Invalidator) Bump(ctx context.Context) error {
	var errs []error
	for _, key := range versionKeys {
		value, err := i.counters.Incr(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("bump %s: %w", key, err))
			continue
		}
		i.logger.Debug("cache version bumped", zap.String("key", key), zap.Int64("version", value))
	}
	return errors.Join(errs...)
}

// Version returns the current value of one version counter, zero if it has
// never been bumped.
func (i *Invalidator) Version(ctx context.Context, key string) (int64, error) {
	return i.counters.Get(ctx, key)
}
