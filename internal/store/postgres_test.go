package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS kv`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM kv`).
		WithArgs("markdownCache").
		WillReturnError(pgx.ErrNoRows)

	v, err := s.Get(context.Background(), "markdownCache")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM kv`).
		WithArgs("customPrompt").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`"find {SEARCH}"`)))

	v, err := s.Get(context.Background(), "customPrompt")
	require.NoError(t, err)
	assert.Equal(t, `"find {SEARCH}"`, string(v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM kv`).
		WithArgs("k").
		WillReturnError(errors.New("connection reset"))

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: get k")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Set_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("apiKeys", []byte(`{"openai":"sk"}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Set(context.Background(), "apiKeys", []byte(`{"openai":"sk"}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM kv`).
		WithArgs("history").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Delete(context.Background(), "history"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Keys(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT key FROM kv`).
		WithArgs("api_verified_").
		WillReturnRows(pgxmock.NewRows([]string{"key"}).
			AddRow("api_verified_groq_llama").
			AddRow("api_verified_openai_gpt-4o"))

	keys, err := s.Keys(context.Background(), "api_verified_")
	require.NoError(t, err)
	assert.Equal(t, []string{"api_verified_groq_llama", "api_verified_openai_gpt-4o"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CloseWithoutPool(t *testing.T) {
	s := &PostgresStore{}
	assert.NoError(t, s.Close())
}
