// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dedup remembers which CAPTCHA tokens this gateway has already
// redeemed, using a Redis SET with TTL. Turnstile enforces single use on
// its side too; this filter stops a captured request from being replayed
// without spending a verification round trip.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a redeemed token is remembered. Turnstile
	// tokens are valid for 300s, so twice that is enough.
	DefaultTTL = 10 * time.Minute

	// keyPrefix namespaces replay keys in Redis.
	keyPrefix = "gateway:captcha:"
)

// Filter tracks which tokens have already been seen.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a replay filter backed by Redis.
func NewFilter(rdb *redis.Client) *Filter {
	return &Filter{
		rdb: rdb,
		ttl: DefaultTTL,
	}
}

// IsNew returns true if the token has NOT been seen before.
// If true, the token is marked as seen atomically (SETNX).
func (f *Filter) IsNew(ctx context.Context, token string) (bool, error) {
	set, err := f.rdb.SetNX(ctx, tokenKey(token), 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}

	return set, nil
}

// Forget removes the token's mark so it can be presented again.
func (f *Filter) Forget(ctx context.Context, token string) error {
	if err := f.rdb.Del(ctx, tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}

// tokenKey hashes the token; Turnstile tokens run to ~2KB.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}
