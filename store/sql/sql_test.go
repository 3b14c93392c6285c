package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-gateway/chainindex/store"
)

func TestSaveBlockAndTxsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	tx1 := txID("1")
	tx2 := txID("2")
	block := testBlock(1, "a", tx1, tx2)

	txs := []*store.Transaction{
		testTx(tx1, "alice", store.Tag{Name: "Content-Type", Value: "text/plain"}, store.Tag{Name: "App-Name", Value: "Weave"}),
		testTx(tx2, "bob"),
	}

	require.NoError(t, s.SaveBlockAndTxs(ctx, block, txs, nil))

	maxHeight, err := s.GetMaxHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), maxHeight)

	hash, ok, err := s.GetNewBlockHashByHeight(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, block.IndepHash, hash)

	got, ok, err := s.GetGqlTransaction(ctx, tx1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Pending)
	assert.Equal(t, "text/plain", got.ContentType)
	assert.Equal(t, int64(1), got.Height)
	assert.Equal(t, int64(0), got.BlockTransactionIndex)
	require.Len(t, got.Tags, 2)
	assert.Equal(t, "Content-Type", got.Tags[0].Name)

	gotBlock, ok, err := s.GetGqlBlock(ctx, block.IndepHash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, gotBlock.Pending)
	assert.Equal(t, int64(2), gotBlock.TxCount)
	assert.Equal(t, int64(0), gotBlock.MissingTxCount)
	require.Len(t, gotBlock.Tags, 1)
}

func TestSaveBlockAndTxsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	tx1 := txID("1")
	block := testBlock(1, "a", tx1)
	txs := []*store.Transaction{testTx(tx1, "alice")}

	require.NoError(t, s.SaveBlockAndTxs(ctx, block, txs, nil))
	require.NoError(t, s.SaveBlockAndTxs(ctx, block, txs, nil))

	info, err := s.GetDebugInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Counts.PendingTransactions)
	assert.Equal(t, int64(1), info.Counts.PendingBlocks)
}

func TestSaveBlockAndTxsWithMissingTransaction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	present := txID("present")
	missing := txID("missing")
	block := testBlock(1, "a", present, missing)
	txs := []*store.Transaction{testTx(present, "alice")}

	require.NoError(t, s.SaveBlockAndTxs(ctx, block, txs, [][]byte{missing}))

	info, err := s.GetDebugInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Counts.MissingTransactions)

	_, ok, err := s.GetGqlTransaction(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStabilizeCleanupKeepsMissingTransactionAssociationAboveThreshold(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	present := txID("present")
	missing := txID("missing")
	block := testBlock(10, "a", present, missing)
	txs := []*store.Transaction{testTx(present, "alice")}

	require.NoError(t, s.SaveBlockAndTxs(ctx, block, txs, [][]byte{missing}))

	// Height 10 is well above the threshold below: cleanup must not treat
	// the still-missing transaction's block↔tx association as aged out
	// just because pending_transactions has no row for it.
	require.NoError(t, s.Stabilize(ctx, 5))

	var count int
	require.NoError(t, s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM pending_block_transactions
		WHERE block_indep_hash = $1 AND transaction_id = $2`, block.IndepHash, missing))
	assert.Equal(t, 1, count)

	gotBlock, ok, err := s.GetGqlBlock(ctx, block.IndepHash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), gotBlock.MissingTxCount)
}

func TestResetToHeightDropsAboveHeight(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	require.NoError(t, s.SaveBlockAndTxs(ctx, testBlock(1, "a"), nil, nil))
	require.NoError(t, s.SaveBlockAndTxs(ctx, testBlock(2, "b"), nil, nil))
	require.NoError(t, s.SaveBlockAndTxs(ctx, testBlock(3, "c"), nil, nil))

	require.NoError(t, s.ResetToHeight(ctx, 1))

	maxHeight, err := s.GetMaxHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), maxHeight)

	_, ok, err := s.GetNewBlockHashByHeight(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStabilizePromotesBelowThresholdAndCleansUp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	for h := int64(1); h <= 5; h++ {
		tx := txID(seedFor(h))
		block := testBlock(h, seedFor(h), tx)
		require.NoError(t, s.SaveBlockAndTxs(ctx, block, []*store.Transaction{testTx(tx, seedFor(h))}, nil))
	}

	require.NoError(t, s.Stabilize(ctx, 4))

	info, err := s.GetDebugInfo(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), info.Counts.ConfirmedBlocks)
	assert.Equal(t, int64(2), info.Counts.PendingBlocks)
	assert.Equal(t, int64(3), info.Counts.ConfirmedTransactions)
	assert.Equal(t, int64(2), info.Counts.PendingTransactions)

	got, ok, err := s.GetGqlBlock(ctx, blockHash(seedFor(1)))
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Pending)
}

func TestGetGqlTransactionsUnifiesTiersInDescOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	for h := int64(1); h <= 6; h++ {
		tx := txID(seedFor(h))
		block := testBlock(h, seedFor(h), tx)
		require.NoError(t, s.SaveBlockAndTxs(ctx, block, []*store.Transaction{testTx(tx, seedFor(h))}, nil))
	}
	require.NoError(t, s.Stabilize(ctx, 4))

	conn, err := s.GetGqlTransactions(ctx, store.TransactionQueryArgs{
		PageSize:  10,
		SortOrder: store.HeightDesc,
		MinHeight: -1,
		MaxHeight: -1,
	})
	require.NoError(t, err)
	require.Len(t, conn.Edges, 6)
	assert.False(t, conn.HasNextPage)

	var gotHeights []int64
	for _, e := range conn.Edges {
		gotHeights = append(gotHeights, e.Node.Height)
	}
	assert.Equal(t, []int64{6, 5, 4, 3, 2, 1}, gotHeights)
	assert.True(t, conn.Edges[0].Node.Pending)
	assert.False(t, conn.Edges[5].Node.Pending)
}

func TestGetGqlTransactionsPagesWithCursor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	for h := int64(1); h <= 5; h++ {
		tx := txID(seedFor(h))
		block := testBlock(h, seedFor(h), tx)
		require.NoError(t, s.SaveBlockAndTxs(ctx, block, []*store.Transaction{testTx(tx, seedFor(h))}, nil))
	}

	first, err := s.GetGqlTransactions(ctx, store.TransactionQueryArgs{
		PageSize:  2,
		SortOrder: store.HeightDesc,
		MinHeight: -1,
		MaxHeight: -1,
	})
	require.NoError(t, err)
	require.Len(t, first.Edges, 2)
	assert.True(t, first.HasNextPage)
	assert.Equal(t, int64(5), first.Edges[0].Node.Height)
	assert.Equal(t, int64(4), first.Edges[1].Node.Height)

	second, err := s.GetGqlTransactions(ctx, store.TransactionQueryArgs{
		PageSize:  2,
		SortOrder: store.HeightDesc,
		MinHeight: -1,
		MaxHeight: -1,
		Cursor:    first.Edges[len(first.Edges)-1].Cursor,
	})
	require.NoError(t, err)
	require.Len(t, second.Edges, 2)
	assert.Equal(t, int64(3), second.Edges[0].Node.Height)
	assert.Equal(t, int64(2), second.Edges[1].Node.Height)
}

func TestGetGqlTransactionsFiltersByTag(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	matching := txID("match")
	other := txID("other")
	block := testBlock(1, "a", matching, other)

	txs := []*store.Transaction{
		testTx(matching, "alice", store.Tag{Name: "App-Name", Value: "Weave"}),
		testTx(other, "bob", store.Tag{Name: "App-Name", Value: "SomethingElse"}),
	}
	require.NoError(t, s.SaveBlockAndTxs(ctx, block, txs, nil))

	conn, err := s.GetGqlTransactions(ctx, store.TransactionQueryArgs{
		PageSize:  10,
		SortOrder: store.HeightDesc,
		MinHeight: -1,
		MaxHeight: -1,
		Tags:      []store.TagFilter{{Name: "App-Name", Values: []string{"Weave"}}},
	})
	require.NoError(t, err)
	require.Len(t, conn.Edges, 1)
	assert.Equal(t, matching, conn.Edges[0].Node.ID)
}

func seedFor(h int64) string {
	return string(rune('a' + h))
}
