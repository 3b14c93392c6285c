// Package store defines the storage-engine-agnostic contract of the chain
// indexing core: the two-tier ingestion, stabilization, and query
// operations described by the specification. The sql subpackage provides
// the SQLite-backed implementation.
package store

import "context"

// Store is the full surface exposed to the API layer collaborator.
type Store interface {
	// SaveBlockAndTxs atomically commits one block, its block<->tx
	// associations, its fetched transactions, and its missing-tx
	// placeholders into the pending tier. Every insert is insert-or-ignore,
	// so replaying the same call is idempotent.
	SaveBlockAndTxs(ctx context.Context, block *Block, txs []*Transaction, missingTxIDs [][]byte) error

	// GetMaxHeight returns the greatest height across both BlockHeight
	// tiers, or -1 if the index is empty.
	GetMaxHeight(ctx context.Context) (int64, error)

	// GetNewBlockHashByHeight returns the pending indep_hash at that
	// height, if any. height < 0 is ErrInvalidArgument.
	GetNewBlockHashByHeight(ctx context.Context, height int64) (hash []byte, ok bool, err error)

	// ResetToHeight deletes every pending BlockHeight row above h, the
	// mechanism by which a caller reacts to an upstream reorganization.
	ResetToHeight(ctx context.Context, h int64) error

	// Stabilize promotes pending rows below endHeight into the confirmed
	// tier and cleans up aged-out pending rows. SaveBlockAndTxs calls this
	// automatically every STABLE_FLUSH_INTERVAL blocks; it is also exposed
	// directly so a caller can drive it explicitly (e.g. in tests, or to
	// catch up after downtime).
	Stabilize(ctx context.Context, endHeight int64) error

	// GetGqlTransactions answers the unified pending+confirmed,
	// cursor-paginated, filterable transaction query.
	GetGqlTransactions(ctx context.Context, args TransactionQueryArgs) (*TransactionConnection, error)

	// GetGqlTransaction looks up a single transaction by id, trying the
	// confirmed tier then the pending tier.
	GetGqlTransaction(ctx context.Context, id []byte) (*GqlTransaction, bool, error)

	// GetGqlBlocks answers the unified pending+confirmed, cursor-paginated,
	// filterable block query.
	GetGqlBlocks(ctx context.Context, args BlockQueryArgs) (*BlockConnection, error)

	// GetGqlBlock looks up a single block by indep_hash, trying the
	// confirmed tier then the pending tier.
	GetGqlBlock(ctx context.Context, id []byte) (*GqlBlock, bool, error)

	// GetDebugInfo returns the counts and height summaries backing health
	// checks.
	GetDebugInfo(ctx context.Context) (*DebugInfo, error)

	// Close releases the underlying storage handle(s).
	Close() error
}
