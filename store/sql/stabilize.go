package sql

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/ordishs/gocore"
	"github.com/pkg/errors"
)

// Stabilize promotes pending rows whose height is strictly less than
// endHeight into the confirmed tier, then deletes aged-out pending rows.
// Promotion and cleanup each run as their own single write transaction, per
// §4.3 of the specification.
func (s *SQL) Stabilize(ctx context.Context, endHeight int64) error {
	start := gocore.CurrentNanos()
	defer func() {
		gocore.NewStat("chainindex").NewStat("Stabilize").AddTime(start)
	}()

	if err := s.promote(ctx, endHeight); err != nil {
		s.logger.Error().Err(err).Int64("endHeight", endHeight).Msg("promotion failed")
		return errors.Wrap(err, "promote")
	}

	if err := s.cleanup(ctx, endHeight); err != nil {
		s.logger.Error().Err(err).Int64("endHeight", endHeight).Msg("cleanup failed")
		return errors.Wrap(err, "cleanup")
	}

	s.logger.Debug().Int64("endHeight", endHeight).Msg("stabilization complete")
	return nil
}

// promote runs six ordered insert-or-ignore statements: the first copies
// pending_block_heights into confirmed_block_heights, and the other five
// (blocks, block tags, block transactions, transactions, transaction tags)
// join pending rows through confirmed_block_heights. A height is only
// ever assigned one canonical indep_hash in the confirmed tier: the
// BlockHeight insert below is itself insert-or-ignore against a
// UNIQUE(height) index (see schema.go), so competing forks at the same
// height lose deterministically (ORDER BY indep_hash) and are never
// copied further.
func (s *SQL) promote(ctx context.Context, endHeight int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, q := range promotionStatements {
			if _, err := tx.ExecContext(ctx, q, endHeight); err != nil {
				return err
			}
		}
		return nil
	})
}

var promotionStatements = []string{
	`INSERT OR IGNORE INTO confirmed_block_heights (height, indep_hash)
		SELECT height, indep_hash FROM pending_block_heights
		WHERE height < $1
		ORDER BY height, indep_hash`,

	`INSERT OR IGNORE INTO confirmed_blocks (
			indep_hash, height, previous_block, nonce, hash, block_timestamp,
			diff, cumulative_diff, last_retarget, reward_addr, reward_pool,
			block_size, weave_size, usd_to_ar_rate_dividend, usd_to_ar_rate_divisor,
			scheduled_usd_to_ar_rate_dividend, scheduled_usd_to_ar_rate_divisor,
			hash_list_merkle, wallet_list, tx_root, tx_count, missing_tx_count
		)
		SELECT
			b.indep_hash, b.height, b.previous_block, b.nonce, b.hash, b.block_timestamp,
			b.diff, b.cumulative_diff, b.last_retarget, b.reward_addr, b.reward_pool,
			b.block_size, b.weave_size, b.usd_to_ar_rate_dividend, b.usd_to_ar_rate_divisor,
			b.scheduled_usd_to_ar_rate_dividend, b.scheduled_usd_to_ar_rate_divisor,
			b.hash_list_merkle, b.wallet_list, b.tx_root, b.tx_count, b.missing_tx_count
		FROM pending_blocks b
		JOIN confirmed_block_heights ch ON ch.indep_hash = b.indep_hash
		WHERE ch.height < $1`,

	`INSERT OR IGNORE INTO confirmed_block_tags (block_indep_hash, block_tag_index, tag_name_hash, tag_value_hash)
		SELECT bt.block_indep_hash, bt.block_tag_index, bt.tag_name_hash, bt.tag_value_hash
		FROM pending_block_tags bt
		JOIN confirmed_block_heights ch ON ch.indep_hash = bt.block_indep_hash
		WHERE ch.height < $1`,

	`INSERT OR IGNORE INTO confirmed_block_transactions (block_indep_hash, transaction_id, block_transaction_index)
		SELECT bt.block_indep_hash, bt.transaction_id, bt.block_transaction_index
		FROM pending_block_transactions bt
		JOIN confirmed_block_heights ch ON ch.indep_hash = bt.block_indep_hash
		WHERE ch.height < $1`,

	`INSERT OR IGNORE INTO confirmed_transactions (
			id, signature, format, last_tx, owner_address, target, quantity,
			reward, data_size, data_root, content_type, tag_count, created_at,
			height, block_transaction_index
		)
		SELECT
			t.id, t.signature, t.format, t.last_tx, t.owner_address, t.target, t.quantity,
			t.reward, t.data_size, t.data_root, t.content_type, t.tag_count, t.created_at,
			ch.height, bt.block_transaction_index
		FROM pending_transactions t
		JOIN pending_block_transactions bt ON bt.transaction_id = t.id
		JOIN confirmed_block_heights ch ON ch.indep_hash = bt.block_indep_hash
		WHERE ch.height < $1`,

	`INSERT OR IGNORE INTO confirmed_transaction_tags (
			transaction_id, transaction_tag_index, tag_name_hash, tag_value_hash,
			height, block_transaction_index
		)
		SELECT
			tt.transaction_id, tt.transaction_tag_index, tt.tag_name_hash, tt.tag_value_hash,
			ch.height, bt.block_transaction_index
		FROM pending_transaction_tags tt
		JOIN pending_block_transactions bt ON bt.transaction_id = tt.transaction_id
		JOIN confirmed_block_heights ch ON ch.indep_hash = bt.block_indep_hash
		WHERE ch.height < $1`,
}

// cleanup runs the ordered deletes of §4.3 in their own transaction. Tag and
// transaction rows are deleted before the block rows they join through.
//
// A transaction ages out of the pending tier for one of two independent
// reasons: its block fell below heightThreshold, or it has sat in
// pending_transactions longer than NewTxCleanupWaitSecs. A transaction that
// was never fetched at all (a "missing" transaction) has no
// pending_transactions row and can never match the second reason — its
// block↔tx association must survive until its own block ages out by
// height, same as any other row belonging to that block. The set of
// timestamp-aged-out transaction ids is captured up front, before the
// DELETE against pending_transactions below removes the very rows that
// predicate depends on.
func (s *SQL) cleanup(ctx context.Context, heightThreshold int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var maxConfirmedTimestamp sql.NullInt64
		if err := tx.GetContext(ctx, &maxConfirmedTimestamp, `SELECT MAX(block_timestamp) FROM confirmed_blocks`); err != nil {
			return errors.Wrap(err, "query max confirmed block timestamp")
		}

		createdAtThreshold := maxConfirmedTimestamp.Int64 - NewTxCleanupWaitSecs

		var agedOutByTimestamp [][]byte
		if err := tx.SelectContext(ctx, &agedOutByTimestamp, `SELECT id FROM pending_transactions WHERE created_at < $1`, createdAtThreshold); err != nil {
			return errors.Wrap(err, "query timestamp-aged-out transactions")
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM pending_transaction_tags
			WHERE transaction_id IN (
				SELECT bt.transaction_id FROM pending_block_transactions bt
				JOIN pending_block_heights h ON h.indep_hash = bt.block_indep_hash
				WHERE h.height < $1
			)
			OR transaction_id IN (
				SELECT id FROM pending_transactions WHERE created_at < $2
			)`, heightThreshold, createdAtThreshold); err != nil {
			return errors.Wrap(err, "delete pending transaction tags")
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM pending_transactions
			WHERE id IN (
				SELECT bt.transaction_id FROM pending_block_transactions bt
				JOIN pending_block_heights h ON h.indep_hash = bt.block_indep_hash
				WHERE h.height < $1
			)
			OR created_at < $2`, heightThreshold, createdAtThreshold)
		if err != nil {
			return errors.Wrap(err, "delete pending transactions")
		}
		s.logger.Debug().Int64("rows", rowsAffected(res)).Msg("deleted pending transactions")

		blockTxQuery, blockTxArgs := blockTransactionsCleanupQuery(heightThreshold, agedOutByTimestamp)
		res, err = tx.ExecContext(ctx, blockTxQuery, blockTxArgs...)
		if err != nil {
			return errors.Wrap(err, "delete pending block transactions")
		}
		s.logger.Debug().Int64("rows", rowsAffected(res)).Msg("deleted pending block transactions")

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM pending_block_tags
			WHERE block_indep_hash IN (
				SELECT indep_hash FROM pending_block_heights WHERE height < $1
			)`, heightThreshold); err != nil {
			return errors.Wrap(err, "delete pending block tags")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_blocks WHERE height < $1`, heightThreshold); err != nil {
			return errors.Wrap(err, "delete pending blocks")
		}

		res, err = tx.ExecContext(ctx, `DELETE FROM pending_block_heights WHERE height < $1`, heightThreshold)
		if err != nil {
			return errors.Wrap(err, "delete pending block heights")
		}
		s.logger.Debug().Int64("rows", rowsAffected(res)).Msg("deleted pending block heights")

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM missing_transactions
			WHERE height < $1
			AND EXISTS (
				SELECT 1 FROM confirmed_block_transactions cbt
				WHERE cbt.block_indep_hash = missing_transactions.block_indep_hash
				AND cbt.transaction_id = missing_transactions.transaction_id
			)`, heightThreshold); err != nil {
			return errors.Wrap(err, "delete resolved missing transactions")
		}

		return nil
	})
}

// blockTransactionsCleanupQuery builds the pending_block_transactions
// DELETE for cleanup. The height branch covers any association whose block
// aged out, missing transactions included. The second branch, present only
// when agedOutByTimestamp is non-empty, additionally removes associations
// for real transactions retired purely by NewTxCleanupWaitSecs — it never
// matches a missing transaction, since those never had a row to age out.
func blockTransactionsCleanupQuery(heightThreshold int64, agedOutByTimestamp [][]byte) (string, []interface{}) {
	q := `DELETE FROM pending_block_transactions
		WHERE block_indep_hash IN (
			SELECT indep_hash FROM pending_block_heights WHERE height < ?
		)`
	args := []interface{}{heightThreshold}

	if len(agedOutByTimestamp) > 0 {
		q += ` OR transaction_id IN (` + placeholders(len(agedOutByTimestamp)) + `)`
		for _, id := range agedOutByTimestamp {
			args = append(args, id)
		}
	}

	return q, args
}
