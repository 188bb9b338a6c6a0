package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// TypedStore keeps JSON values of type C under "<prefix>:<key>". Keys passed
// in and returned are always relative to the prefix.
type TypedStore[C any] struct {
	client *Client
	prefix string
}

// NewTypedStore returns a store rooted at prefix. An empty prefix leaves
// keys untouched.
func NewTypedStore[C any](client *Client, prefix string) *TypedStore[C] {
	return &TypedStore[C]{client: client, prefix: prefix}
}

func (s *TypedStore[C]) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *TypedStore[C]) rel(full string) string {
	if s.prefix == "" {
		return full
	}
	return strings.TrimPrefix(full, s.prefix+":")
}

func storeErr(op, key string, err error) error {
	return fmt.Errorf("typed store %s %q: %w", op, key, err)
}

// Load returns (nil, nil) for a missing key.
func (s *TypedStore[C]) Load(ctx context.Context, key string) (*C, error) {
	raw, err := s.client.Get(ctx, s.key(key))
	if stderrors.Is(err, Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("load", key, err)
	}
	val := new(C)
	if err := json.Unmarshal([]byte(raw), val); err != nil {
		return nil, storeErr("unmarshal", key, err)
	}
	return val, nil
}

// Save overwrites key. A zero ttl never expires.
func (s *TypedStore[C]) Save(ctx context.Context, key string, val *C, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return storeErr("marshal", key, err)
	}
	if err := s.client.Set(ctx, s.key(key), string(data), ttl); err != nil {
		return storeErr("save", key, err)
	}
	return nil
}

// Create writes val only when key is absent (SET NX) and reports whether it
// won. The trigger ledger relies on this for cross-process dedup.
func (s *TypedStore[C]) Create(ctx context.Context, key string, val *C, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(val)
	if err != nil {
		return false, storeErr("marshal", key, err)
	}
	won, err := s.client.SetNX(ctx, s.key(key), string(data), ttl)
	if err != nil {
		return false, storeErr("create", key, err)
	}
	return won, nil
}

func (s *TypedStore[C]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)); err != nil {
		return storeErr("delete", key, err)
	}
	return nil
}

// Keys lists the stored keys starting with prefix.
func (s *TypedStore[C]) Keys(ctx context.Context, prefix string) ([]string, error) {
	full, err := s.client.Scan(ctx, s.key(prefix)+"*")
	if err != nil {
		return nil, storeErr("scan", prefix, err)
	}
	for i, k := range full {
		full[i] = s.rel(k)
	}
	return full, nil
}

// DeletePrefix removes every key starting with prefix.
func (s *TypedStore[C]) DeletePrefix(ctx context.Context, prefix string) error {
	full, err := s.client.Scan(ctx, s.key(prefix)+"*")
	if err != nil {
		return storeErr("scan", prefix, err)
	}
	if err := s.client.Del(ctx, full...); err != nil {
		return storeErr("delete prefix", prefix, err)
	}
	return nil
}
