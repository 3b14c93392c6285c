package sql

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// withTx runs fn inside a single write transaction. Any error aborts the
// transaction; no partial state is persisted. This is the atomic-unit
// boundary the specification's concurrency model requires for ingest,
// promotion, and cleanup: no suspension may occur between the statements
// of one of these calls.
func (s *SQL) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback also failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}

	return nil
}
