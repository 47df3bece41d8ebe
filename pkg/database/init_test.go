package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorly/tutorly_backend/config"
)

func TestDSN(t *testing.T) {
	c := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=tutorly sslmode=disable", DSN(c, "tutorly"))
}

func TestCreateDatabaseIfNotExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("tutorly").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`CREATE DATABASE "tutorly"`).WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("already").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ctx := context.Background()
	require.NoError(t, createDatabaseIfNotExists(ctx, db, "tutorly"))
	require.NoError(t, createDatabaseIfNotExists(ctx, db, "already"))
	require.NoError(t, mock.ExpectationsWereMet())
}
