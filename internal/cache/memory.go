package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a bounded in-process LRU cache. Every entry lives for the TTL
// given to NewMemory; the per-call ttl of Set is ignored.
type Memory struct {
	lru *expirable.LRU[string, string]
}

// NewMemory creates an LRU holding at most size entries for ttl each.
// A ttl of zero keeps entries until they are evicted.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size < 1 {
		size = 1
	}
	return &Memory{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool) {
	return m.lru.Get(key)
}

func (m *Memory) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.lru.Add(key, value)
	return nil
}

func (m *Memory) Purge(ctx context.Context) error {
	m.lru.Purge()
	return nil
}

// Len returns the number of live entries
func (m *Memory) Len() int {
	return m.lru.Len()
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
