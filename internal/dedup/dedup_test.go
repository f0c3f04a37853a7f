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

package dedup

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestFilter(t *testing.T) (*Filter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewFilter(rdb), mr
}

// TestIsNew_SecondSightingIsReplay verifies SETNX semantics.
func TestIsNew_SecondSightingIsReplay(t *testing.T) {
	f, _ := newTestFilter(t)
	ctx := context.Background()

	first, err := f.IsNew(ctx, "token-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first {
		t.Error("first sighting should be new")
	}

	second, err := f.IsNew(ctx, "token-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second {
		t.Error("second sighting should be reported as a replay")
	}

	other, _ := f.IsNew(ctx, "token-xyz")
	if !other {
		t.Error("a different token should be new")
	}
}

// TestIsNew_Expires verifies the TTL releases old tokens.
func TestIsNew_Expires(t *testing.T) {
	f, mr := newTestFilter(t)
	ctx := context.Background()

	if ok, _ := f.IsNew(ctx, "token-abc"); !ok {
		t.Fatal("first sighting should be new")
	}

	mr.FastForward(DefaultTTL + 1)

	if ok, _ := f.IsNew(ctx, "token-abc"); !ok {
		t.Error("token should be forgotten after the TTL")
	}
}

// TestForget_ReleasesToken verifies a forgotten token reads as new again.
func TestForget_ReleasesToken(t *testing.T) {
	f, _ := newTestFilter(t)
	ctx := context.Background()

	if ok, _ := f.IsNew(ctx, "token-abc"); !ok {
		t.Fatal("first sighting should be new")
	}
	if err := f.Forget(ctx, "token-abc"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if ok, _ := f.IsNew(ctx, "token-abc"); !ok {
		t.Error("token should be new after Forget")
	}
}

// TestIsNew_RedisDown verifies errors surface to the caller.
func TestIsNew_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	f := NewFilter(rdb)
	mr.Close()

	if _, err := f.IsNew(context.Background(), "token"); err == nil {
		t.Error("expected error when Redis is unavailable")
	}
}
