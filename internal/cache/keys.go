package cache

import (
	"context"
	"fmt"
	"strings"
)

// Key builds a cache key from a namespace and id, with optional suffix parts.
// Empty suffixes are skipped: Key("problem", "42") is "problem:42",
// Key("problem", "42", "meta") is "problem:42:meta".
func Key(namespace, id string, suffix ...string) string {
	parts := make([]string, 0, 2+len(suffix))
	parts = append(parts, namespace, id)
	for _, s := range suffix {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ":")
}

// InvalidatePattern deletes all keys matching a glob-like pattern and returns
// the number deleted.
func InvalidatePattern(ctx context.Context, store Store, pattern string) (int, error) {
	keys, err := store.Keys(ctx, pattern)
	if err != nil {
		return 0, newError(KindCacheRead, fmt.Errorf("list keys %q: %w", pattern, err))
	}
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := store.Delete(ctx, keys...)
	if err != nil {
		return 0, newError(KindCacheWrite, fmt.Errorf("delete keys %q: %w", pattern, err))
	}
	return int(deleted), nil
}
