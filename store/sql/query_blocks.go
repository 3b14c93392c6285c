package sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/ordishs/gocore"
	"github.com/pkg/errors"

	"github.com/weave-gateway/chainindex/encoding"
	"github.com/weave-gateway/chainindex/store"
)

type blockRow struct {
	IndepHash                   []byte        `db:"indep_hash"`
	PreviousBlock               []byte        `db:"previous_block"`
	Nonce                       []byte        `db:"nonce"`
	Hash                        []byte        `db:"hash"`
	Height                      int64         `db:"height"`
	Timestamp                   int64         `db:"block_timestamp"`
	Diff                        numericString `db:"diff"`
	CumulativeDiff              numericString `db:"cumulative_diff"`
	LastRetarget                int64         `db:"last_retarget"`
	RewardAddr                  []byte        `db:"reward_addr"`
	RewardPool                  numericString `db:"reward_pool"`
	BlockSize                   numericString `db:"block_size"`
	WeaveSize                   numericString `db:"weave_size"`
	UsdToArRateDividend         numericString `db:"usd_to_ar_rate_dividend"`
	UsdToArRateDivisor          numericString `db:"usd_to_ar_rate_divisor"`
	ScheduledUsdToArRateDividend numericString `db:"scheduled_usd_to_ar_rate_dividend"`
	ScheduledUsdToArRateDivisor  numericString `db:"scheduled_usd_to_ar_rate_divisor"`
	HashListMerkle              []byte        `db:"hash_list_merkle"`
	WalletList                  []byte        `db:"wallet_list"`
	TxRoot                      []byte        `db:"tx_root"`
	TxCount                     int64         `db:"tx_count"`
	MissingTxCount              int64         `db:"missing_tx_count"`
}

// GetGqlBlocks answers the unified pending+confirmed, cursor-paginated block
// query. It is the [height]-cursor sibling of GetGqlTransactions, without a
// tag-join plan or a block_transaction_index component.
func (s *SQL) GetGqlBlocks(ctx context.Context, args store.BlockQueryArgs) (*store.BlockConnection, error) {
	start := gocore.CurrentNanos()
	defer func() {
		gocore.NewStat("chainindex").NewStat("GetGqlBlocks").AddTime(start)
	}()

	hc, hasCursor, err := encoding.DecodeBlockCursor(args.Cursor)
	if err != nil {
		return nil, store.ErrBadCursor
	}

	limit := args.PageSize + 1

	var rows []store.GqlBlock

	if args.SortOrder == store.HeightAsc {
		confirmed, err := s.queryBlockTier(ctx, false, args, hc, hasCursor, args.MinHeight, args.MaxHeight, limit)
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
			pending, err := s.queryBlockTier(ctx, true, args, hc, hasCursor, minHeight, args.MaxHeight, remaining)
			if err != nil {
				return nil, err
			}
			rows = append(rows, pending...)
		}
	} else {
		pending, err := s.queryBlockTier(ctx, true, args, hc, hasCursor, args.MinHeight, args.MaxHeight, limit)
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
			confirmed, err := s.queryBlockTier(ctx, false, args, hc, hasCursor, args.MinHeight, maxHeight, remaining)
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

	edges := make([]store.BlockEdge, 0, len(rows))
	for _, r := range rows {
		if err := s.fetchBlockTags(ctx, &r); err != nil {
			return nil, err
		}
		edges = append(edges, store.BlockEdge{
			Cursor: encoding.EncodeBlockCursor(r.Height),
			Node:   r,
		})
	}

	return &store.BlockConnection{Edges: edges, HasNextPage: hasNextPage}, nil
}

func (s *SQL) queryBlockTier(ctx context.Context, pending bool, args store.BlockQueryArgs, hc int64, hasCursor bool, minHeight, maxHeight int64, limit int) ([]store.GqlBlock, error) {
	if limit <= 0 {
		return nil, nil
	}

	table := "confirmed_blocks"
	if pending {
		table = "pending_blocks"
	}

	var b strings.Builder
	var params []interface{}

	fmt.Fprintf(&b, `SELECT indep_hash, previous_block, nonce, hash, height, block_timestamp,
		diff, cumulative_diff, last_retarget, reward_addr, reward_pool, block_size, weave_size,
		usd_to_ar_rate_dividend, usd_to_ar_rate_divisor,
		scheduled_usd_to_ar_rate_dividend, scheduled_usd_to_ar_rate_divisor,
		hash_list_merkle, wallet_list, tx_root, tx_count, missing_tx_count
		FROM %s`, table)

	var where []string

	if pending {
		where = append(where, "indep_hash IN (SELECT indep_hash FROM pending_block_heights)")
	}
	if len(args.IDs) > 0 {
		where = append(where, fmt.Sprintf("indep_hash IN (%s)", placeholders(len(args.IDs))))
		for _, id := range args.IDs {
			params = append(params, id)
		}
	}
	if minHeight != -1 {
		where = append(where, "height >= ?")
		params = append(params, minHeight)
	}
	if maxHeight != -1 {
		where = append(where, "height <= ?")
		params = append(params, maxHeight)
	}
	if hasCursor {
		op := "<"
		if args.SortOrder == store.HeightAsc {
			op = ">"
		}
		where = append(where, fmt.Sprintf("height %s ?", op))
		params = append(params, hc)
	}

	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	dir := "DESC"
	if args.SortOrder == store.HeightAsc {
		dir = "ASC"
	}
	fmt.Fprintf(&b, " ORDER BY height %s LIMIT ?", dir)
	params = append(params, limit)

	var dbRows []blockRow
	if err := s.db.SelectContext(ctx, &dbRows, b.String(), params...); err != nil {
		return nil, errors.Wrap(err, "query blocks")
	}

	out := make([]store.GqlBlock, 0, len(dbRows))
	for _, r := range dbRows {
		out = append(out, store.GqlBlock{
			IndepHash:                    r.IndepHash,
			PreviousBlock:                r.PreviousBlock,
			Nonce:                        r.Nonce,
			Hash:                         r.Hash,
			Height:                       r.Height,
			Timestamp:                    r.Timestamp,
			Diff:                         string(r.Diff),
			CumulativeDiff:               string(r.CumulativeDiff),
			LastRetarget:                 r.LastRetarget,
			RewardAddr:                   r.RewardAddr,
			RewardPool:                   string(r.RewardPool),
			BlockSize:                    string(r.BlockSize),
			WeaveSize:                    string(r.WeaveSize),
			UsdToArRateDividend:          string(r.UsdToArRateDividend),
			UsdToArRateDivisor:           string(r.UsdToArRateDivisor),
			ScheduledUsdToArRateDividend: string(r.ScheduledUsdToArRateDividend),
			ScheduledUsdToArRateDivisor:  string(r.ScheduledUsdToArRateDivisor),
			HashListMerkle:               r.HashListMerkle,
			WalletList:                   r.WalletList,
			TxRoot:                       r.TxRoot,
			TxCount:                      r.TxCount,
			MissingTxCount:               r.MissingTxCount,
			Pending:                      pending,
		})
	}
	return out, nil
}

func (s *SQL) fetchBlockTags(ctx context.Context, r *store.GqlBlock) error {
	tagTable := "confirmed_block_tags"
	if r.Pending {
		tagTable = "pending_block_tags"
	}

	q := fmt.Sprintf(`SELECT tn.name AS name, tv.value AS value
		FROM %s tg
		JOIN tag_names tn ON tn.hash = tg.tag_name_hash
		JOIN tag_values tv ON tv.hash = tg.tag_value_hash
		WHERE tg.block_indep_hash = ?
		ORDER BY tg.block_tag_index`, tagTable)

	var tags []struct {
		Name  string `db:"name"`
		Value string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &tags, q, r.IndepHash); err != nil {
		return errors.Wrap(err, "fetch block tags")
	}

	r.Tags = make([]store.Tag, 0, len(tags))
	for _, t := range tags {
		r.Tags = append(r.Tags, store.Tag{Name: t.Name, Value: t.Value})
	}
	return nil
}

// GetGqlBlock tries the confirmed tier then the pending tier.
func (s *SQL) GetGqlBlock(ctx context.Context, id []byte) (*store.GqlBlock, bool, error) {
	start := gocore.CurrentNanos()
	defer func() {
		gocore.NewStat("chainindex").NewStat("GetGqlBlock").AddTime(start)
	}()

	for _, pending := range []bool{false, true} {
		rows, err := s.queryBlockTier(ctx, pending, store.BlockQueryArgs{
			IDs:       [][]byte{id},
			MinHeight: -1,
			MaxHeight: -1,
			PageSize:  1,
		}, 0, false, -1, -1, 1)
		if err != nil {
			return nil, false, err
		}
		if len(rows) > 0 {
			if err := s.fetchBlockTags(ctx, &rows[0]); err != nil {
				return nil, false, err
			}
			return &rows[0], true, nil
		}
	}

	return nil, false, nil
}
