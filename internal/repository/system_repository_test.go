package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edsonosf/gdp/internal/models"
)

func TestSystemRepositoryNow(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSystemRepository(db)

	now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT NOW()")).WillReturnRows(sqlmock.NewRows([]string{"now"}).AddRow(now))

	got, err := repo.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystemRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSystemRepository(db)

	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM students\) AS students`).
		WillReturnRows(sqlmock.NewRows([]string{"students", "occurrences", "users", "logs"}).AddRow(45, 3, 2, 10))

	counts, err := repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.BackupCounts{Students: 45, Occurrences: 3, Users: 2, Logs: 10}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystemRepositoryRestoreSkipsSeedAdmin(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSystemRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("TRUNCATE occurrences, students, access_logs RESTART IDENTITY CASCADE")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id <> $1")).WithArgs(models.SeedAdminID).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO occurrences").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO access_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Restore(context.Background(), RestoreSet{
		Students:    []models.Student{{ID: "st-1", Name: "ANA"}},
		Users:       []models.User{{ID: models.SeedAdminID, Name: "Imposter"}, {ID: "u1", Name: "Maria", CPF: "123.456.789-09"}},
		Occurrences: []models.Occurrence{{ID: "o1", StudentID: "st-1", Status: models.OccurrencePending}},
		Logs:        []models.AccessLog{{Event: models.EventLogin, Status: models.AccessSuccess}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystemRepositoryRestoreRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSystemRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO students").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.Restore(context.Background(), RestoreSet{Students: []models.Student{{ID: "st-1"}, {ID: "st-1"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restore student st-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
