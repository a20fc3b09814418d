package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

// KVRepository stores opaque values in the kv_entries table.
type KVRepository struct {
	db *sqlx.DB
}

// NewKVRepository constructs the repository.
func NewKVRepository(db *sqlx.DB) *KVRepository {
	return &KVRepository{db: db}
}

func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM kv_entries WHERE key = $1`
	var value []byte
	if err := r.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("get kv %s: %w", key, err)
	}
	return value, nil
}

func (r *KVRepository) Set(ctx context.Context, key string, value []byte) error {
	const query = `INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		if isDiskFull(err) {
			return appErrors.With(appErrors.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("set kv %s: %w", key, err)
	}
	return nil
}

func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete kv %s: %w", key, err)
	}
	return nil
}

func (r *KVRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	const query = `SELECT key FROM kv_entries WHERE key LIKE $1 ESCAPE '\' ORDER BY key ASC`
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query, escapeLike(prefix)+"%"); err != nil {
		return nil, fmt.Errorf("list kv %s: %w", prefix, err)
	}
	return keys, nil
}

// Ping reports whether the database answers.
func (r *KVRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// isDiskFull matches the insufficient_resources SQLSTATE class.
func isDiskFull(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code.Class() == "53"
}
