package store

// Tag is a decoded name/value pair attached to a transaction or block.
type Tag struct {
	Name  string
	Value string
}

// Block is the canonical, decoded representation of one block as accepted
// by the ingestion engine. Byte fields are raw (already base64-decoded at
// the ingestion boundary); decimal-valued fields arrive and are stored as
// strings so that values too large for a 64-bit integer are not truncated.
type Block struct {
	Height                        int64
	IndepHash                     []byte
	PreviousBlock                 []byte
	Nonce                         []byte
	Hash                          []byte
	Timestamp                     int64
	Diff                          string
	CumulativeDiff                string
	LastRetarget                  int64
	RewardAddr                    []byte
	RewardPool                    string
	BlockSize                     string
	WeaveSize                     string
	UsdToArRateDividend           string
	UsdToArRateDivisor            string
	ScheduledUsdToArRateDividend  string
	ScheduledUsdToArRateDivisor   string
	HashListMerkle                []byte
	WalletList                    []byte
	TxRoot                        []byte
	// TxIDs is the full, ordered list of transaction ids the block
	// references (block.txs on the wire). Its length is tx_count; its
	// order fixes block_transaction_index. txs and missingTxIds passed to
	// SaveBlockAndTxs together must cover every id here.
	TxIDs [][]byte
	Tags  []Tag
}

// Transaction is the canonical, decoded representation of one transaction
// as accepted by the ingestion engine.
type Transaction struct {
	ID           []byte
	Signature    []byte
	Format       int
	LastTx       []byte
	OwnerModulus []byte // raw RSA public modulus; owner_address is derived from it
	Target       []byte
	Quantity     string
	Reward       string
	DataSize     string
	DataRoot     []byte
	Tags         []Tag
}

// SortOrder selects the total-order direction for paginated queries.
type SortOrder int

const (
	// HeightDesc sorts by (height, block_transaction_index) descending; the
	// default for both query operations.
	HeightDesc SortOrder = iota
	// HeightAsc sorts ascending.
	HeightAsc
)

// TagFilter requests rows whose tag set contains `name` with a value in
// `values` (OR'd within the tag; tags are AND'd across a filter list).
type TagFilter struct {
	Name   string
	Values []string
}

// TransactionQueryArgs is the argument bundle for GetGqlTransactions.
type TransactionQueryArgs struct {
	PageSize   int
	Cursor     string
	SortOrder  SortOrder
	IDs        [][]byte
	Recipients [][]byte
	Owners     [][]byte
	MinHeight  int64 // -1 means unbounded
	MaxHeight  int64 // -1 means unbounded
	Tags       []TagFilter
}

// BlockQueryArgs is the argument bundle for GetGqlBlocks.
type BlockQueryArgs struct {
	PageSize  int
	Cursor    string
	SortOrder SortOrder
	IDs       [][]byte
	MinHeight int64
	MaxHeight int64
}

// GqlTransaction is one row returned by the query engine, including the
// fields computed at ingestion time (owner address, content type, tag
// count) and the tier-specific ordering columns.
type GqlTransaction struct {
	ID                    []byte
	Signature             []byte
	Format                int
	LastTx                []byte
	OwnerAddress          []byte
	Target                []byte
	Quantity              string
	Reward                string
	DataSize              string
	DataRoot              []byte
	ContentType           string
	TagCount              int
	CreatedAt             int64
	Height                int64
	BlockTransactionIndex int64
	Pending               bool
	Tags                  []Tag
}

// GqlBlock is one row returned by the block query engine.
type GqlBlock struct {
	IndepHash                    []byte
	PreviousBlock                []byte
	Nonce                        []byte
	Hash                         []byte
	Height                       int64
	Timestamp                    int64
	Diff                         string
	CumulativeDiff                string
	LastRetarget                  int64
	RewardAddr                    []byte
	RewardPool                    string
	BlockSize                     string
	WeaveSize                     string
	UsdToArRateDividend           string
	UsdToArRateDivisor            string
	ScheduledUsdToArRateDividend  string
	ScheduledUsdToArRateDivisor   string
	HashListMerkle                []byte
	WalletList                    []byte
	TxRoot                        []byte
	TxCount                       int64
	MissingTxCount                int64
	Pending                       bool
	Tags                          []Tag
}

// TransactionEdge pairs a GqlTransaction with its opaque page cursor.
type TransactionEdge struct {
	Cursor string
	Node   GqlTransaction
}

// BlockEdge pairs a GqlBlock with its opaque page cursor.
type BlockEdge struct {
	Cursor string
	Node   GqlBlock
}

// TransactionConnection is one page of the transaction query engine.
type TransactionConnection struct {
	Edges       []TransactionEdge
	HasNextPage bool
}

// BlockConnection is one page of the block query engine.
type BlockConnection struct {
	Edges       []BlockEdge
	HasNextPage bool
}

// DebugCounts are the row counts exposed by the diagnostics surface.
type DebugCounts struct {
	Wallets                int64
	TagNames               int64
	TagValues              int64
	PendingTransactions    int64
	ConfirmedTransactions  int64
	PendingBlocks          int64
	ConfirmedBlocks        int64
	MissingTransactions    int64
	BlockTags              int64
}

// DebugHeights are the min/max heights per tier exposed by the diagnostics
// surface, plus the derived missing-stable-blocks count.
type DebugHeights struct {
	PendingMinHeight    int64
	PendingMaxHeight    int64
	ConfirmedMinHeight  int64
	ConfirmedMaxHeight  int64
	MissingStableBlocks int64
}

// DebugInfo is the full payload of GetDebugInfo.
type DebugInfo struct {
	Counts  DebugCounts
	Heights DebugHeights
}
