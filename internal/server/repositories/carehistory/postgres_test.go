package carehistory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/plantcare/internal/api"
)

var ts = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO care_history`).
		WithArgs("h1", "c1", ts, "watering", nil, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &api.CareHistory{ID: "h1", CollectionID: "c1", CareDate: ts, CareType: "watering", CreatedAt: ts})
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO care_history`).WillReturnError(errors.New("fk violation"))
	err = repo.Create(context.Background(), &api.CareHistory{ID: "h2"})
	assert.ErrorContains(t, err, "insert care history: fk violation")
}

func TestListByCollection(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM care_history\s+WHERE collection_id = \$1 ORDER BY care_date DESC LIMIT \$2`).
		WithArgs("c1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "collection_id", "care_date", "care_type", "notes", "created_at"}).
			AddRow("h2", "c1", ts.Add(time.Hour), "pruning", "dead leaves", ts).
			AddRow("h1", "c1", ts, "watering", nil, ts))

	got, err := repo.ListByCollection(context.Background(), "c1", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Notes)
	assert.Equal(t, "dead leaves", *got[0].Notes)
	assert.Nil(t, got[1].Notes)
	require.NoError(t, mock.ExpectationsWereMet())
}
