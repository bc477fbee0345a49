// Package cache holds small read-through caches for catalog lookups (slug maps, topic scopes).
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Cache interface {
	// Get decodes the cached value into dst. It reports false on a miss.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

const (
	memorySize   = 4096
	memoryMaxTTL = time.Hour
)

type entry struct {
	data    []byte
	expires time.Time
}

// MemoryCache is an in-process Cache on a bounded, expiring LRU. Values are stored
// JSON encoded so callers never share mutable state with the cache. Every entry is
// dropped after memoryMaxTTL; a shorter per-key ttl is checked on read.
type MemoryCache struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

func NewMemory() *MemoryCache {
	return &MemoryCache{
		lru: expirable.NewLRU[string, entry](memorySize, nil, memoryMaxTTL),
		now: time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		m.lru.Remove(key)
		return false, nil
	}
	return true, json.Unmarshal(e.data, dst)
}

func (m *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := entry{data: b}
	if ttl > 0 && ttl < memoryMaxTTL {
		e.expires = m.now().Add(ttl)
	}
	m.lru.Add(key, e)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.lru.Remove(k)
	}
	return nil
}

func (m *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.lru.Remove(k)
		}
	}
	return nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Delete(context.Context, ...string) error { return nil }
func (Nop) DeletePrefix(context.Context, string) error { return nil }
