package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSettingRepositoryAll(t *testing.T) {
	db, mock, cleanup := newSettingRepoMock(t)
	defer cleanup()
	repo := NewSettingRepository(db)

	rows := sqlmock.NewRows([]string{"key", "value", "updated_at"}).
		AddRow("hero_title", "এক নজরে কুরআন", time.Now()).
		AddRow("section_order", `["hero"]`, time.Now())
	mock.ExpectQuery("SELECT key, value, updated_at FROM settings ORDER BY key").WillReturnRows(rows)

	settings, err := repo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, settings, 2)
	assert.Equal(t, `["hero"]`, settings[1].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingRepositoryListByKeys(t *testing.T) {
	db, mock, cleanup := newSettingRepoMock(t)
	defer cleanup()
	repo := NewSettingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE key IN ($1,$2)")).
		WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}).AddRow("a", "1", time.Now()))

	settings, err := repo.ListByKeys(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, settings, 1)

	none, err := repo.ListByKeys(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newSettingRepoMock(t)
	defer cleanup()
	repo := NewSettingRepository(db)

	mock.ExpectQuery("SELECT key, value, updated_at FROM settings WHERE key").
		WithArgs("logo_url").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "logo_url")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestSettingRepositoryUpdateReportsRows(t *testing.T) {
	db, mock, cleanup := newSettingRepoMock(t)
	defer cleanup()
	repo := NewSettingRepository(db)

	mock.ExpectExec("UPDATE settings SET value").
		WithArgs("hero_title", "নতুন", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO settings").
		WithArgs("hero_title", "নতুন", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	n, err := repo.Update(context.Background(), "hero_title", "নতুন")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	require.NoError(t, repo.Insert(context.Background(), "hero_title", "নতুন"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
