package dbmigrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNilDB is thrown when the database pointer is nil
var ErrNilDB = errors.New("DB pointer is nil")

// Queryer is something which can execute a Query (a *sql.DB, *sql.Conn or
// *sql.Tx)
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Transactor defines the interface for the BeginTx method shared by *sql.DB
// and *sql.Conn
type Transactor interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Connection defines the interface for a *sql.DB or *sql.Conn, which can both
// start a new transaction and run queries. Passing a *sql.Conn pins every
// statement of a run (lock, reads and transactions) to one session.
type Connection interface {
	Transactor
	Queryer
}

// transaction wraps the supplied function in a transaction with the supplied
// database connection. Any error or panic from f rolls the transaction back.
func transaction(ctx context.Context, db Transactor, f func(Queryer) error) (err error) {
	if db == nil {
		return ErrNilDB
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			switch p := p.(type) {
			case error:
				err = p
			default:
				err = fmt.Errorf("%s", p)
			}
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("commit transaction: %w", err)
		}
	}()

	return f(tx)
}
