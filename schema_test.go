package dbmigrator

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestTransactionCommits(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := transaction(context.Background(), db, func(tx Queryer) error {
		_, err := tx.ExecContext(context.Background(), "SELECT 1")
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	failure := errors.New("nope")

	err := transaction(context.Background(), db, func(tx Queryer) error {
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRecoversPanic(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := transaction(context.Background(), db, func(tx Queryer) error {
		panic("kaboom")
	})
	if err == nil || err.Error() != "kaboom" {
		t.Errorf("Expected the panic to become an error. Got %v", err)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionCommitFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := transaction(context.Background(), db, func(tx Queryer) error {
		return nil
	})
	if err == nil {
		t.Fatal("Expected commit failure to be returned")
	}
	assert.Contains(t, err.Error(), "commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionNilDB(t *testing.T) {
	err := transaction(context.Background(), nil, func(tx Queryer) error { return nil })
	assert.ErrorIs(t, err, ErrNilDB)
}
