package cache

import (
	"context"
	"time"
)

// FiberStorage adapts a Store to fiber.Storage so Fiber middleware such as
// the rate limiter can keep its state in the shared cache.
type FiberStorage struct {
	store  Store
	prefix string
}

// NewFiberStorage namespaces every key under prefix. Closing the adapter
// does not close the underlying store.
func NewFiberStorage(store Store, prefix string) *FiberStorage {
	return &FiberStorage{store: store, prefix: prefix}
}

func (s *FiberStorage) Get(key string) ([]byte, error) {
	value, ok := s.store.Read(context.Background(), s.prefix+key)
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (s *FiberStorage) Set(key string, val []byte, exp time.Duration) error {
	if len(key) == 0 || len(val) == 0 {
		return nil
	}
	ctx := context.Background()
	if exp <= 0 {
		return s.store.Write(ctx, s.prefix+key, val)
	}
	return s.store.WriteWithTTL(ctx, s.prefix+key, val, exp)
}

func (s *FiberStorage) Delete(key string) error {
	return s.store.Delete(context.Background(), s.prefix+key)
}

func (s *FiberStorage) Reset() error {
	_, err := s.store.DeleteByPrefix(context.Background(), s.prefix)
	return err
}

func (s *FiberStorage) Close() error {
	return nil
}
