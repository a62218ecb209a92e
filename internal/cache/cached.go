package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"time"
)

// DefaultTTL is applied when no WithTTL option is given.
const DefaultTTL = time.Hour

// Store is the cache store consumed by the executor. A miss is reported via
// found=false, not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int64, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Option configures one Cached call.
type Option func(*options)

type options struct {
	ttl     time.Duration
	refresh bool
	logger  *slog.Logger
}

// WithTTL overrides the TTL for the stored result.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithRefresh forces the producer to run even on a cache hit.
func WithRefresh() Option {
	return func(o *options) { o.refresh = true }
}

// WithLogger overrides the logger used for non-fatal write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Cached runs producer with read-through caching under key.
//
// Without WithRefresh, a cached value is decoded and returned and the
// producer is never invoked. Otherwise the producer runs exactly once and a
// non-zero result is stored with the TTL. Zero-valued results (0, "", false,
// nil, empty slices and maps) are returned but never stored, so they are
// recomputed on every call; this mirrors the behavior of the system this
// replaced and is kept on purpose.
//
// Cache read failures and producer failures escalate as *Error. A store
// write failure after a successful producer run is logged and the result is
// returned with a nil error.
func Cached[T any](ctx context.Context, store Store, key string, producer func(context.Context) (T, error), opts ...Option) (T, error) {
	var zero T

	o := options{ttl: DefaultTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if !o.refresh {
		raw, found, err := store.Get(ctx, key)
		if err != nil {
			return zero, newError(KindCacheRead, fmt.Errorf("get %q: %w", key, err))
		}
		if found {
			var value T
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				return zero, newError(KindCacheRead, fmt.Errorf("decode %q: %w", key, err))
			}
			return value, nil
		}
	}

	result, err := producer(ctx)
	if err != nil {
		return zero, newError(KindProducer, err)
	}

	if cacheable(result) {
		if err := storeResult(ctx, store, key, result, o.ttl); err != nil {
			o.logger.Warn("cache write failed after producer run", "key", key, "error", err)
		}
	}

	return result, nil
}

func storeResult(ctx context.Context, store Store, key string, result any, ttl time.Duration) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := store.Set(ctx, key, string(encoded), ttl); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// cacheable reports whether a producer result gets stored. Zero values and
// empty collections do not.
func cacheable(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return !rv.IsNil() && rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return !rv.IsZero()
}
