package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

func newKVRepoMock(t *testing.T) (*KVRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewKVRepository(sqlxDB), mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestKVRepositoryGet(t *testing.T) {
	repo, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("selected_location").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"id":"x"}`)))

	value, err := repo.Get(context.Background(), "selected_location")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"x"}`, string(value))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKVRepositoryGetMissing(t *testing.T) {
	repo, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestKVRepositorySetUpserts(t *testing.T) {
	repo, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("schedule_a_2025_4", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Set(context.Background(), "schedule_a_2025_4", []byte(`{}`)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKVRepositorySetDiskFull(t *testing.T) {
	repo, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO kv_entries").
		WillReturnError(&pq.Error{Code: "53100", Message: "could not extend file"})

	err := repo.Set(context.Background(), "k", []byte("v"))
	assert.True(t, errors.Is(err, appErrors.ErrQuotaExceeded))
}

func TestKVRepositoryKeysEscapesPrefix(t *testing.T) {
	repo, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT key FROM kv_entries").
		WithArgs(`schedule\_%`).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("schedule_a_2025_4").AddRow("schedule_b_2025_5"))

	keys, err := repo.Keys(context.Background(), "schedule_")
	require.NoError(t, err)
	assert.Equal(t, []string{"schedule_a_2025_4", "schedule_b_2025_5"}, keys)
}

func TestKVRepositoryDelete(t *testing.T) {
	repo, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM kv_entries").
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "k"))
}
