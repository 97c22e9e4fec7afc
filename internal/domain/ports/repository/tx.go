package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque storage transaction handle. Repositories type-switch on it
// (pgx.Tx for Postgres) and must accept NoTX for the non-transactional path.
type Tx interface{}

var NoTX Tx

// TransactionManager runs fn inside one database transaction. Every
// repository call made with the tx passed to fn joins that transaction.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

// UserLocker serializes lifecycle mutations for one user. Implementations
// hold the lock until the surrounding transaction ends.
type UserLocker interface {
	LockUser(ctx context.Context, tx Tx, userID string) error
}
