package service

import (
	"context"
	"encoding/json"
)

// KVStore is the persistent key-value contract shared by the schedule cache,
// the mosque cache and the selected location. Every call may fail; Get
// reports a missing key as ErrCacheMiss and Set may fail with
// ErrQuotaExceeded.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

func getJSON(ctx context.Context, kv KVStore, key string, dest interface{}) error {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func setJSON(ctx context.Context, kv KVStore, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return kv.Set(ctx, key, raw)
}
