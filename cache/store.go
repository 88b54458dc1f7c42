// Package cache provides results-cache implementations for
// goextract.Annotator: a BoltDB-backed store for a single process and a
// Redis-backed store for cooperating processes sharing one cache. The two
// backends use different wire formats for their stored value (gob for
// Bolt, JSON for Redis), so each keeps its own encode/decode pair rather
// than sharing one.
package cache

import (
	goextract "github.com/soundprediction/go-extract"
)

// Compile-time check that both backends satisfy goextract.CacheStore.
var (
	_ goextract.CacheStore = (*BoltStore)(nil)
	_ goextract.CacheStore = (*RedisStore)(nil)
)
