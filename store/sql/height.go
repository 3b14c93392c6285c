package sql

import (
	"context"
	"database/sql"

	"github.com/ordishs/gocore"
	"github.com/pkg/errors"

	"github.com/weave-gateway/chainindex/store"
)

// GetMaxHeight returns the greatest height across both BlockHeight tiers,
// or -1 if the index is empty.
func (s *SQL) GetMaxHeight(ctx context.Context) (int64, error) {
	start := gocore.CurrentNanos()
	defer func() {
		gocore.NewStat("chainindex").NewStat("GetMaxHeight").AddTime(start)
	}()

	var max sql.NullInt64
	err := s.db.GetContext(ctx, &max, `
		SELECT MAX(height) FROM (
			SELECT height FROM pending_block_heights
			UNION ALL
			SELECT height FROM confirmed_block_heights
		)`)
	if err != nil {
		return 0, errors.Wrap(err, "query max height")
	}

	if !max.Valid {
		return -1, nil
	}
	return max.Int64, nil
}

// GetNewBlockHashByHeight returns the pending indep_hash at that height, if
// any.
func (s *SQL) GetNewBlockHashByHeight(ctx context.Context, height int64) ([]byte, bool, error) {
	start := gocore.CurrentNanos()
	defer func() {
		gocore.NewStat("chainindex").NewStat("GetNewBlockHashByHeight").AddTime(start)
	}()

	if height < 0 {
		return nil, false, store.ErrInvalidArgument
	}

	var hash []byte
	err := s.db.GetContext(ctx, &hash, `SELECT indep_hash FROM pending_block_heights WHERE height = $1 LIMIT 1`, height)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "query pending block hash by height")
	}

	return hash, true, nil
}

// ResetToHeight deletes every pending BlockHeight row above h; the other
// pending rows of those blocks stay in place. Every pending-tier query is
// restricted to blocks that have a pending_block_heights row, so their
// Block, BlockTransaction, Transaction, and TransactionTag rows are no
// longer returned. Stabilization's height predicates also go through
// pending_block_heights, so it does not select these rows by block height:
// it deletes the pending Block row once its own height falls below the
// threshold, and the Transaction and TransactionTag rows (with the
// BlockTransaction rows of fetched transactions) once they age out by
// created_at. The block's tags, the BlockTransaction rows of its missing
// transactions, and its MissingTransaction rows are not deleted.
func (s *SQL) ResetToHeight(ctx context.Context, h int64) error {
	start := gocore.CurrentNanos()
	defer func() {
		gocore.NewStat("chainindex").NewStat("ResetToHeight").AddTime(start)
	}()

	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_block_heights WHERE height > $1`, h)
	if err != nil {
		return errors.Wrap(err, "reset to height")
	}

	s.logger.Debug().Int64("height", h).Msg("reset to height")
	return nil
}
