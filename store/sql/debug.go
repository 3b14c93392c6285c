package sql

import (
	"context"
	"database/sql"

	"github.com/ordishs/gocore"
	"github.com/pkg/errors"

	"github.com/weave-gateway/chainindex/store"
)

// GetDebugInfo answers the diagnostics surface: row counts per table and
// the min/max height per tier, plus the derived count of confirmed heights
// with no block ("missing stable blocks").
func (s *SQL) GetDebugInfo(ctx context.Context) (*store.DebugInfo, error) {
	start := gocore.CurrentNanos()
	defer func() {
		gocore.NewStat("chainindex").NewStat("GetDebugInfo").AddTime(start)
	}()

	var counts store.DebugCounts
	if err := s.db.GetContext(ctx, &counts.Wallets, `SELECT COUNT(*) FROM wallets`); err != nil {
		return nil, errors.Wrap(err, "count wallets")
	}
	if err := s.db.GetContext(ctx, &counts.TagNames, `SELECT COUNT(*) FROM tag_names`); err != nil {
		return nil, errors.Wrap(err, "count tag names")
	}
	if err := s.db.GetContext(ctx, &counts.TagValues, `SELECT COUNT(*) FROM tag_values`); err != nil {
		return nil, errors.Wrap(err, "count tag values")
	}
	if err := s.db.GetContext(ctx, &counts.PendingTransactions, `SELECT COUNT(*) FROM pending_transactions`); err != nil {
		return nil, errors.Wrap(err, "count pending transactions")
	}
	if err := s.db.GetContext(ctx, &counts.ConfirmedTransactions, `SELECT COUNT(*) FROM confirmed_transactions`); err != nil {
		return nil, errors.Wrap(err, "count confirmed transactions")
	}
	if err := s.db.GetContext(ctx, &counts.PendingBlocks, `SELECT COUNT(*) FROM pending_blocks`); err != nil {
		return nil, errors.Wrap(err, "count pending blocks")
	}
	if err := s.db.GetContext(ctx, &counts.ConfirmedBlocks, `SELECT COUNT(*) FROM confirmed_blocks`); err != nil {
		return nil, errors.Wrap(err, "count confirmed blocks")
	}
	if err := s.db.GetContext(ctx, &counts.MissingTransactions, `SELECT COUNT(*) FROM missing_transactions`); err != nil {
		return nil, errors.Wrap(err, "count missing transactions")
	}
	if err := s.db.GetContext(ctx, &counts.BlockTags, `
		SELECT
			(SELECT COUNT(*) FROM pending_block_tags) +
			(SELECT COUNT(*) FROM confirmed_block_tags)`); err != nil {
		return nil, errors.Wrap(err, "count block tags")
	}

	var heights store.DebugHeights

	var pendingMin, pendingMax, confirmedMin, confirmedMax sql.NullInt64
	if err := s.db.GetContext(ctx, &pendingMin, `SELECT MIN(height) FROM pending_block_heights`); err != nil {
		return nil, errors.Wrap(err, "query pending min height")
	}
	if err := s.db.GetContext(ctx, &pendingMax, `SELECT MAX(height) FROM pending_block_heights`); err != nil {
		return nil, errors.Wrap(err, "query pending max height")
	}
	if err := s.db.GetContext(ctx, &confirmedMin, `SELECT MIN(height) FROM confirmed_block_heights`); err != nil {
		return nil, errors.Wrap(err, "query confirmed min height")
	}
	if err := s.db.GetContext(ctx, &confirmedMax, `SELECT MAX(height) FROM confirmed_block_heights`); err != nil {
		return nil, errors.Wrap(err, "query confirmed max height")
	}

	if pendingMin.Valid {
		heights.PendingMinHeight = pendingMin.Int64
	} else {
		heights.PendingMinHeight = -1
	}
	if pendingMax.Valid {
		heights.PendingMaxHeight = pendingMax.Int64
	} else {
		heights.PendingMaxHeight = -1
	}
	if confirmedMin.Valid {
		heights.ConfirmedMinHeight = confirmedMin.Int64
	} else {
		heights.ConfirmedMinHeight = -1
	}
	if confirmedMax.Valid {
		heights.ConfirmedMaxHeight = confirmedMax.Int64
	} else {
		heights.ConfirmedMaxHeight = -1
	}

	if confirmedMin.Valid && confirmedMax.Valid {
		span := confirmedMax.Int64 - (confirmedMin.Int64 - 1)
		heights.MissingStableBlocks = span - counts.ConfirmedBlocks
	}

	return &store.DebugInfo{Counts: counts, Heights: heights}, nil
}
