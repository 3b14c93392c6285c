package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ordishs/gocore"
	"github.com/pkg/errors"

	"github.com/weave-gateway/chainindex/encoding"
	"github.com/weave-gateway/chainindex/store"
)

type txRow struct {
	ID                    []byte         `db:"id"`
	Signature             []byte         `db:"signature"`
	Format                int            `db:"format"`
	LastTx                []byte         `db:"last_tx"`
	OwnerAddress          []byte         `db:"owner_address"`
	Target                []byte         `db:"target"`
	Quantity              numericString  `db:"quantity"`
	Reward                numericString  `db:"reward"`
	DataSize              numericString  `db:"data_size"`
	DataRoot              []byte         `db:"data_root"`
	ContentType           sql.NullString `db:"content_type"`
	TagCount              int            `db:"tag_count"`
	CreatedAt             int64          `db:"created_at"`
	Height                int64          `db:"height"`
	BlockTransactionIndex int64          `db:"block_transaction_index"`
}

// GetGqlTransactions answers the unified pending+confirmed, cursor-paginated
// transaction query of §4.5.1.
func (s *SQL) GetGqlTransactions(ctx context.Context, args store.TransactionQueryArgs) (*store.TransactionConnection, error) {
	start := gocore.CurrentNanos()
	defer func() {
		gocore.NewStat("chainindex").NewStat("GetGqlTransactions").AddTime(start)
	}()

	hc, ic, hasCursor, err := encoding.DecodeTransactionCursor(args.Cursor)
	if err != nil {
		return nil, store.ErrBadCursor
	}

	limit := args.PageSize + 1

	var rows []store.GqlTransaction

	if args.SortOrder == store.HeightAsc {
		confirmed, err := s.queryTransactionTier(ctx, false, args, hc, ic, hasCursor, args.MinHeight, args.MaxHeight, limit)
		if err != nil {
			return nil, err
		}
		rows = confirmed

		if remaining := limit - len(rows); remaining > 0 {
			minHeight := args.MinHeight
			if len(rows) > 0 {
				bound := rows[len(rows)-1].Height + 1
				if minHeight == -1 || bound > minHeight {
					minHeight = bound
				}
			}
			pending, err := s.queryTransactionTier(ctx, true, args, hc, ic, hasCursor, minHeight, args.MaxHeight, remaining)
			if err != nil {
				return nil, err
			}
			rows = append(rows, pending...)
		}
	} else {
		pending, err := s.queryTransactionTier(ctx, true, args, hc, ic, hasCursor, args.MinHeight, args.MaxHeight, limit)
		if err != nil {
			return nil, err
		}
		rows = pending

		if remaining := limit - len(rows); remaining > 0 {
			maxHeight := args.MaxHeight
			if len(rows) > 0 {
				bound := rows[len(rows)-1].Height - 1
				if maxHeight == -1 || bound < maxHeight {
					maxHeight = bound
				}
			}
			confirmed, err := s.queryTransactionTier(ctx, false, args, hc, ic, hasCursor, args.MinHeight, maxHeight, remaining)
			if err != nil {
				return nil, err
			}
			rows = append(rows, confirmed...)
		}
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}

	hasNextPage := len(rows) > args.PageSize
	if hasNextPage {
		rows = rows[:args.PageSize]
	}

	edges := make([]store.TransactionEdge, 0, len(rows))
	for _, r := range rows {
		if err := s.fetchTransactionTags(ctx, &r); err != nil {
			return nil, err
		}
		edges = append(edges, store.TransactionEdge{
			Cursor: encoding.EncodeTransactionCursor(r.Height, r.BlockTransactionIndex),
			Node:   r,
		})
	}

	return &store.TransactionConnection{Edges: edges, HasNextPage: hasNextPage}, nil
}

// queryTransactionTier runs the per-tier half of the unified query: it
// builds the tag-join plan, applies the cursor and height bounds, and
// returns at most limit rows in the requested sort order.
func (s *SQL) queryTransactionTier(ctx context.Context, pending bool, args store.TransactionQueryArgs, hc, ic int64, hasCursor bool, minHeight, maxHeight int64, limit int) ([]store.GqlTransaction, error) {
	if limit <= 0 {
		return nil, nil
	}

	var b strings.Builder
	var params []interface{}

	heightExpr, btiExpr, table := "t.height", "t.block_transaction_index", "confirmed_transactions"
	tagTable := "confirmed_transaction_tags"
	if pending {
		table = "pending_transactions"
		tagTable = "pending_transaction_tags"
		heightExpr, btiExpr = "h.height", "bt.block_transaction_index"
	}

	fmt.Fprintf(&b, `SELECT t.id, t.signature, t.format, t.last_tx, t.owner_address, t.target,
		t.quantity, t.reward, t.data_size, t.data_root, t.content_type, t.tag_count, t.created_at,
		%s AS height, %s AS block_transaction_index
		FROM %s t`, heightExpr, btiExpr, table)

	if pending {
		b.WriteString(` JOIN pending_block_transactions bt ON bt.transaction_id = t.id`)
		b.WriteString(` JOIN pending_block_heights h ON h.indep_hash = bt.block_indep_hash`)
	}

	for i, tf := range args.Tags {
		alias := fmt.Sprintf("tg%d", i)
		if pending {
			fmt.Fprintf(&b, ` JOIN %s %s ON %s.transaction_id = t.id AND %s.tag_name_hash = ?`, tagTable, alias, alias, alias)
		} else {
			fmt.Fprintf(&b, ` JOIN %s %s ON %s.height = t.height AND %s.block_transaction_index = t.block_transaction_index AND %s.tag_name_hash = ?`, tagTable, alias, alias, alias, alias)
		}
		params = append(params, encoding.TagNameHash([]byte(tf.Name)))

		if len(tf.Values) > 0 {
			fmt.Fprintf(&b, ` AND %s.tag_value_hash IN (%s)`, alias, placeholders(len(tf.Values)))
			for _, v := range tf.Values {
				params = append(params, encoding.TagValueHash([]byte(v)))
			}
		}
	}

	var where []string

	if len(args.IDs) > 0 {
		where = append(where, fmt.Sprintf("t.id IN (%s)", placeholders(len(args.IDs))))
		for _, id := range args.IDs {
			params = append(params, id)
		}
	}
	if len(args.Owners) > 0 {
		where = append(where, fmt.Sprintf("t.owner_address IN (%s)", placeholders(len(args.Owners))))
		for _, v := range args.Owners {
			params = append(params, v)
		}
	}
	if len(args.Recipients) > 0 {
		where = append(where, fmt.Sprintf("t.target IN (%s)", placeholders(len(args.Recipients))))
		for _, v := range args.Recipients {
			params = append(params, v)
		}
	}
	if minHeight != -1 {
		where = append(where, fmt.Sprintf("%s >= ?", heightExpr))
		params = append(params, minHeight)
	}
	if maxHeight != -1 {
		where = append(where, fmt.Sprintf("%s <= ?", heightExpr))
		params = append(params, maxHeight)
	}
	if hasCursor {
		op := "<"
		if args.SortOrder == store.HeightAsc {
			op = ">"
		}
		where = append(where, fmt.Sprintf("(%s * %d + %s) %s ?", heightExpr, BlockTransactionIndexBound, btiExpr, op))
		params = append(params, hc*BlockTransactionIndexBound+ic)
	}

	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	dir := "DESC"
	if args.SortOrder == store.HeightAsc {
		dir = "ASC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, %s %s LIMIT ?", heightExpr, dir, btiExpr, dir)
	params = append(params, limit)

	var dbRows []txRow
	if err := s.db.SelectContext(ctx, &dbRows, b.String(), params...); err != nil {
		return nil, errors.Wrap(err, "query transactions")
	}

	out := make([]store.GqlTransaction, 0, len(dbRows))
	for _, r := range dbRows {
		out = append(out, store.GqlTransaction{
			ID:                    r.ID,
			Signature:             r.Signature,
			Format:                r.Format,
			LastTx:                r.LastTx,
			OwnerAddress:          r.OwnerAddress,
			Target:                r.Target,
			Quantity:              string(r.Quantity),
			Reward:                string(r.Reward),
			DataSize:              string(r.DataSize),
			DataRoot:              r.DataRoot,
			ContentType:           r.ContentType.String,
			TagCount:              r.TagCount,
			CreatedAt:             r.CreatedAt,
			Height:                r.Height,
			BlockTransactionIndex: r.BlockTransactionIndex,
			Pending:               pending,
		})
	}
	return out, nil
}

// fetchTransactionTags retains the canonical N+1 pattern: one extra query
// per transaction, preserving tag order.
func (s *SQL) fetchTransactionTags(ctx context.Context, r *store.GqlTransaction) error {
	tagTable := "confirmed_transaction_tags"
	if r.Pending {
		tagTable = "pending_transaction_tags"
	}

	q := fmt.Sprintf(`SELECT tn.name AS name, tv.value AS value
		FROM %s tg
		JOIN tag_names tn ON tn.hash = tg.tag_name_hash
		JOIN tag_values tv ON tv.hash = tg.tag_value_hash
		WHERE tg.transaction_id = ?
		ORDER BY tg.transaction_tag_index`, tagTable)

	var tags []struct {
		Name  string `db:"name"`
		Value string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &tags, q, r.ID); err != nil {
		return errors.Wrap(err, "fetch transaction tags")
	}

	r.Tags = make([]store.Tag, 0, len(tags))
	for _, t := range tags {
		r.Tags = append(r.Tags, store.Tag{Name: t.Name, Value: t.Value})
	}
	return nil
}

// GetGqlTransaction tries the confirmed tier then the pending tier.
func (s *SQL) GetGqlTransaction(ctx context.Context, id []byte) (*store.GqlTransaction, bool, error) {
	start := gocore.CurrentNanos()
	defer func() {
		gocore.NewStat("chainindex").NewStat("GetGqlTransaction").AddTime(start)
	}()

	for _, pending := range []bool{false, true} {
		rows, err := s.queryTransactionTier(ctx, pending, store.TransactionQueryArgs{
			IDs:       [][]byte{id},
			MinHeight: -1,
			MaxHeight: -1,
			PageSize:  1,
		}, 0, 0, false, -1, -1, 1)
		if err != nil {
			return nil, false, err
		}
		if len(rows) > 0 {
			if err := s.fetchTransactionTags(ctx, &rows[0]); err != nil {
				return nil, false, err
			}
			return &rows[0], true, nil
		}
	}

	return nil, false, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
