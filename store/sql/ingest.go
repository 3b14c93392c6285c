package sql

import (
	"bytes"
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ordishs/gocore"
	"github.com/pkg/errors"

	"github.com/weave-gateway/chainindex/encoding"
	"github.com/weave-gateway/chainindex/store"
)

// SaveBlockAndTxs atomically commits one block, its block<->tx
// associations, its fetched transactions (with tags and owner wallets),
// and its missing-tx placeholders, exactly per the specification's
// ingestion contract. Every insert is insert-or-ignore, so replaying the
// same call is idempotent. On success, it triggers stabilization every
// StableFlushInterval blocks.
func (s *SQL) SaveBlockAndTxs(ctx context.Context, block *store.Block, txs []*store.Transaction, missingTxIDs [][]byte) error {
	start := gocore.CurrentNanos()
	defer func() {
		gocore.NewStat("chainindex").NewStat("SaveBlockAndTxs").AddTime(start)
	}()

	txByID := make(map[string]*store.Transaction, len(txs))
	for _, tx := range txs {
		txByID[string(tx.ID)] = tx
	}

	missing := make(map[string]bool, len(missingTxIDs))
	for _, id := range missingTxIDs {
		missing[string(id)] = true
	}

	now := time.Now().Unix()

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		st := s.stmts

		if _, err := tx.Stmtx(st.insertPendingBlock).ExecContext(ctx,
			block.IndepHash, block.Height, block.PreviousBlock, block.Nonce, block.Hash, block.Timestamp,
			block.Diff, block.CumulativeDiff, block.LastRetarget, block.RewardAddr, block.RewardPool,
			block.BlockSize, block.WeaveSize, block.UsdToArRateDividend, block.UsdToArRateDivisor,
			block.ScheduledUsdToArRateDividend, block.ScheduledUsdToArRateDivisor,
			block.HashListMerkle, block.WalletList, block.TxRoot, len(block.TxIDs), len(missingTxIDs),
		); err != nil {
			return errors.Wrap(err, "insert pending block")
		}

		if _, err := tx.Stmtx(st.insertPendingBlockHeight).ExecContext(ctx, block.Height, block.IndepHash); err != nil {
			return errors.Wrap(err, "insert pending block height")
		}

		for i, t := range block.Tags {
			if err := insertTag(ctx, tx, st, block.IndepHash, int64(i), t, st.insertPendingBlockTag); err != nil {
				return errors.Wrap(err, "insert pending block tag")
			}
		}

		for idx, txID := range block.TxIDs {
			if _, err := tx.Stmtx(st.insertPendingBlockTransaction).ExecContext(ctx, block.IndepHash, txID, idx); err != nil {
				return errors.Wrap(err, "insert pending block transaction")
			}

			if missing[string(txID)] {
				if _, err := tx.Stmtx(st.insertMissingTransaction).ExecContext(ctx, block.IndepHash, txID, block.Height); err != nil {
					return errors.Wrap(err, "insert missing transaction")
				}
				continue
			}

			txRecord, ok := txByID[string(txID)]
			if !ok {
				return errors.Errorf("tx %s is neither fetched nor reported missing", encoding.EncodeBytes(txID))
			}

			if err := insertPendingTransaction(ctx, tx, st, txRecord, now); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("height", block.Height).Msg("SaveBlockAndTxs failed")
		return err
	}

	s.logger.Debug().Int64("height", block.Height).Int("txs", len(txs)).Int("missing", len(missingTxIDs)).Msg("SaveBlockAndTxs committed")

	if block.Height >= 0 && block.Height%StableFlushInterval == 0 {
		endHeight := block.Height - MaxForkDepth
		if err := s.Stabilize(ctx, endHeight); err != nil {
			return errors.Wrap(err, "post-commit stabilization")
		}
	}

	return nil
}

func insertPendingTransaction(ctx context.Context, tx *sqlx.Tx, st *statementCatalog, t *store.Transaction, createdAt int64) error {
	ownerAddress := encoding.WalletAddress(t.OwnerModulus)

	if _, err := tx.Stmtx(st.insertWallet).ExecContext(ctx, ownerAddress, t.OwnerModulus); err != nil {
		return errors.Wrap(err, "insert wallet")
	}

	contentType := contentTypeOf(t.Tags)

	if _, err := tx.Stmtx(st.insertPendingTransaction).ExecContext(ctx,
		t.ID, t.Signature, t.Format, t.LastTx, ownerAddress, t.Target, t.Quantity,
		t.Reward, t.DataSize, t.DataRoot, contentType, len(t.Tags), createdAt,
	); err != nil {
		return errors.Wrap(err, "insert pending transaction")
	}

	for i, tag := range t.Tags {
		if err := insertTag(ctx, tx, st, t.ID, int64(i), tag, st.insertPendingTransactionTag); err != nil {
			return errors.Wrap(err, "insert pending transaction tag")
		}
	}

	return nil
}

// insertTag inserts the tag's name and value into the shared, append-only
// TagName/TagValue tables and then the join row (block tag or transaction
// tag, selected by joinStmt) at the given zero-based index.
func insertTag(ctx context.Context, tx *sqlx.Tx, st *statementCatalog, ownerID []byte, index int64, t store.Tag, joinStmt *sqlx.Stmt) error {
	nameHash := encoding.TagNameHash([]byte(t.Name))
	valueHash := encoding.TagValueHash([]byte(t.Value))

	if _, err := tx.Stmtx(st.insertTagName).ExecContext(ctx, nameHash, t.Name); err != nil {
		return errors.Wrap(err, "insert tag name")
	}
	if _, err := tx.Stmtx(st.insertTagValue).ExecContext(ctx, valueHash, t.Value); err != nil {
		return errors.Wrap(err, "insert tag value")
	}
	if _, err := tx.Stmtx(joinStmt).ExecContext(ctx, ownerID, index, nameHash, valueHash); err != nil {
		return errors.Wrap(err, "insert tag join row")
	}
	return nil
}

// contentTypeOf implements the open question from §9: the ingestion
// engine takes the first tag whose lowercased UTF-8 name equals
// "content-type" as the transaction's content type. When multiple such
// tags exist, the first one (in tag order) wins; this choice is stable.
func contentTypeOf(tags []store.Tag) string {
	for _, t := range tags {
		if bytes.EqualFold([]byte(t.Name), []byte("content-type")) {
			return t.Value
		}
	}
	return ""
}
