package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

// MemoryKV is a process-local key-value store. A positive quota bounds the
// sum of key and value sizes the way browser storage does.
type MemoryKV struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int64
	used  int64
}

// NewMemoryKV returns an empty store; quota <= 0 disables the limit.
func NewMemoryKV(quota int64) *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte), quota: quota}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.used + entrySize(key, value)
	if old, ok := m.data[key]; ok {
		next -= entrySize(key, old)
	}
	if m.quota > 0 && next > m.quota {
		return appErrors.With(appErrors.ErrQuotaExceeded, fmt.Errorf("set %s", key))
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	m.used = next
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.used -= entrySize(key, old)
		delete(m.data, key)
	}
	return nil
}

func (m *MemoryKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// FileKV persists each key as one file under a directory, enforcing a byte
// quota across all entries.
type FileKV struct {
	mu    sync.Mutex
	dir   string
	quota int64
}

// NewFileKV creates dir when missing; quota <= 0 disables the limit.
func NewFileKV(dir string, quota int64) (*FileKV, error) {
	if dir == "" {
		dir = "./data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create kv directory: %w", err)
	}
	return &FileKV{dir: dir, quota: quota}, nil
}

func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("read kv %s: %w", key, err)
	}
	return data, nil
}

func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.quota > 0 {
		used, err := f.usage()
		if err != nil {
			return err
		}
		if info, err := os.Stat(f.path(key)); err == nil {
			used -= int64(len(key)) + info.Size()
		}
		if used+entrySize(key, value) > f.quota {
			return appErrors.With(appErrors.ErrQuotaExceeded, fmt.Errorf("set %s", key))
		}
	}

	target := f.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("write kv %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit kv %s: %w", key, err)
	}
	return nil
}

func (f *FileKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete kv %s: %w", key, err)
	}
	return nil
}

func (f *FileKV) Keys(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list kv: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		key, ok := decodeKey(e.Name())
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *FileKV) usage() (int64, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("list kv: %w", err)
	}
	var total int64
	for _, e := range entries {
		key, ok := decodeKey(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += int64(len(key)) + info.Size()
	}
	return total, nil
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+".kv")
}

func decodeKey(name string) (string, bool) {
	if !strings.HasSuffix(name, ".kv") {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, ".kv"))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}
