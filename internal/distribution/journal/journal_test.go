package journal

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fixed := time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)
	j := New(db)
	j.now = func() time.Time { return fixed }

	mock.ExpectExec("INSERT INTO distribution_journal").
		WithArgs(sqlmock.AnyArg(), "zone", "create", sql.NullInt64{}, 9001, 1000, 1050, 50, 500, 77, fixed).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = j.Record(context.Background(), Entry{
		Kind: "zone", Mode: "create", IssuedToEmpID: 9001,
		AppStartNo: 1000, AppEndNo: 1050, Range: 50, Amount: 500, CreatedBy: 77,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_UpdateCarriesEditID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	editID := 42
	mock.ExpectExec("INSERT INTO distribution_journal").
		WithArgs("fixed-id", "campus", "update", sql.NullInt64{Int64: 42, Valid: true},
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = New(db).Record(context.Background(), Entry{ID: "fixed-id", Kind: "campus", Mode: "update", EditID: &editID})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO distribution_journal").WillReturnError(errors.New("connection reset"))

	err = New(db).Record(context.Background(), Entry{Kind: "dgm", Mode: "create"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "record distribution dgm/create")
	assert.NoError(t, mock.ExpectationsWereMet())
}
