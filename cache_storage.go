package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Should be safe to use concurrently
type CacheStorage interface {
	// Store the value under the key for at most ttl. Storing over an
	// existing key just replaces it.
	Store(key string, value string, ttl time.Duration) error

	// Retrieve the value for the key. A missing or expired key is an
	// error.
	Retrieve(key string) (string, error)

	// Remove the key. Removing a key that is not there is an error.
	Remove(key string) error
}

// ------------------------------------------------------------------------------

type RedisCacheStorage struct {
	client    *redis.Client
	namespace string
}

func NewRedisCacheStorage(client *redis.Client, namespace string) *RedisCacheStorage {
	return &RedisCacheStorage{client: client, namespace: namespace}
}

func createKey(namespace, key string) string {
	return fmt.Sprintf("%s:cache:%s", namespace, key)
}

func (s *RedisCacheStorage) Store(key string, value string, ttl time.Duration) error {
	ctx := context.Background()
	return s.client.Set(ctx, createKey(s.namespace, key), value, ttl).Err()
}

func (s *RedisCacheStorage) Retrieve(key string) (string, error) {
	ctx := context.Background()
	return s.client.Get(ctx, createKey(s.namespace, key)).Result()
}

func (s *RedisCacheStorage) Remove(key string) error {
	ctx := context.Background()
	return s.client.Del(ctx, createKey(s.namespace, key)).Err()
}

// ------------------------------------------------------------------------------

type memoryCacheEntry struct {
	value     string
	expiresAt time.Time
}

type InMemoryCacheStorage struct {
	entries map[string]memoryCacheEntry
	mutex   sync.Mutex
}

func NewInMemoryCacheStorage() *InMemoryCacheStorage {
	return &InMemoryCacheStorage{
		entries: make(map[string]memoryCacheEntry),
	}
}

func (s *InMemoryCacheStorage) Store(key string, value string, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry := memoryCacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *InMemoryCacheStorage) Retrieve(key string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", fmt.Errorf("failed to find value for %s", key)
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return "", fmt.Errorf("value for %s has expired", key)
	}
	return entry.value, nil
}

func (s *InMemoryCacheStorage) Remove(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.entries[key]; !ok {
		return fmt.Errorf("failed to remove value for %s, because it wasn't there", key)
	}
	delete(s.entries, key)
	return nil
}
