package shard

import (
	"fmt"
	"testing"
)

func TestOf_SingleShard(t *testing.T) {
	// With n=1, all keys go to shard 0
	keys := []string{
		"/relation/from_to/user/follows/u1/t1",
		"/relation/from_to/user/follows/u1/t2",
		"",
	}
	for _, k := range keys {
		if got := Of(k, 1); got != 0 {
			t.Errorf("Of(%q, 1) = %d, want 0", k, got)
		}
	}
}

func TestOf_ZeroShards(t *testing.T) {
	// Zero or negative counts are treated as 1
	if got := Of("key", 0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := Of("key", -1); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestOf_InRange(t *testing.T) {
	for _, n := range []int{2, 16, 255, 256, 1000} {
		for i := 0; i < 500; i++ {
			got := Of(fmt.Sprintf("/relation/from_to/user/follows/u%d/t%d", i, i%7), n)
			if got < 0 || got >= Count(n) {
				t.Fatalf("Of(_, %d) = %d out of range", n, got)
			}
		}
	}
}

func TestOf_Deterministic(t *testing.T) {
	first := Of("user#u1", 64)
	for i := 0; i < 100; i++ {
		if got := Of("user#u1", 64); got != first {
			t.Fatalf("expected deterministic result %d, got %d on iteration %d", first, got, i)
		}
	}
}

func TestOf_Distribution(t *testing.T) {
	counts := make(map[int]int)
	for i := 0; i < 1000; i++ {
		counts[Of(fmt.Sprintf("key-%d", i), 16)]++
	}
	// Should spread across most shards (not all in one)
	if len(counts) < 12 {
		t.Errorf("expected distribution across shards, got only %d distinct shards", len(counts))
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{32, 32},
		{256, 256},
		{1024, 256},
	}
	for _, tt := range tests {
		if got := Count(tt.in); got != tt.want {
			t.Errorf("Count(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func BenchmarkOf(b *testing.B) {
	key := "/relation/from_to/user/follows/u1/t1"
	for i := 0; i < b.N; i++ {
		Of(key, 32)
	}
}
