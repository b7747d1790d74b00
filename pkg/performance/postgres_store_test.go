package performance

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_RegisterClass(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	store := &PostgresStore{db: sqlx.NewDb(mockDB, "sqlmock")}

	mock.ExpectExec("INSERT INTO tracked_classes").WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.RegisterClass(context.Background(), "s1", "OOMKilled")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
