package sql

import "github.com/jmoiron/sqlx"

// createSchema creates every table and index of §3/§6 if it does not
// already exist. The decimal-valued columns that arrive from the chain
// source (quantity, reward, sizes, diff, rates, ...) are declared TEXT
// rather than NUMERIC: SQLite's NUMERIC affinity silently reinterprets an
// integer literal too large for a 64-bit signed int as a floating-point
// REAL, which would truncate values like Arweave's block diff. TEXT
// affinity never performs that conversion, so the exact decimal string
// round-trips regardless of magnitude.
func createSchema(db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

var schemaStatements = []string{
	// --- shared, append-only tables ---
	`CREATE TABLE IF NOT EXISTS tag_names (
		hash BLOB PRIMARY KEY,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS tag_values (
		hash BLOB PRIMARY KEY,
		value TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS wallets (
		address BLOB PRIMARY KEY,
		public_modulus BLOB NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS missing_transactions (
		block_indep_hash BLOB NOT NULL,
		transaction_id BLOB NOT NULL,
		height INTEGER NOT NULL,
		PRIMARY KEY (block_indep_hash, transaction_id)
	);`,
	`CREATE INDEX IF NOT EXISTS ix_missing_transactions_height ON missing_transactions(height);`,

	// --- pending tier ---
	blockTableDDL("pending_blocks"),
	blockHeightTableDDL("pending_block_heights"),
	blockTransactionTableDDL("pending_block_transactions"),
	blockTagTableDDL("pending_block_tags"),
	pendingTransactionTableDDL(),
	pendingTransactionTagTableDDL(),

	`CREATE UNIQUE INDEX IF NOT EXISTS ux_pending_block_heights ON pending_block_heights(height, indep_hash);`,
	`CREATE INDEX IF NOT EXISTS ix_pending_block_heights_height ON pending_block_heights(height);`,
	`CREATE INDEX IF NOT EXISTS ix_pending_block_transactions_block ON pending_block_transactions(block_indep_hash);`,
	`CREATE INDEX IF NOT EXISTS ix_pending_block_transactions_tx ON pending_block_transactions(transaction_id);`,
	`CREATE INDEX IF NOT EXISTS ix_pending_transactions_owner ON pending_transactions(owner_address);`,
	`CREATE INDEX IF NOT EXISTS ix_pending_transactions_target ON pending_transactions(target);`,
	`CREATE INDEX IF NOT EXISTS ix_pending_transactions_created_at ON pending_transactions(created_at);`,
	`CREATE INDEX IF NOT EXISTS ix_pending_transaction_tags_name_value ON pending_transaction_tags(tag_name_hash, tag_value_hash);`,
	`CREATE INDEX IF NOT EXISTS ix_pending_transaction_tags_tx ON pending_transaction_tags(transaction_id);`,

	// --- confirmed tier ---
	blockTableDDL("confirmed_blocks"),
	blockHeightTableDDL("confirmed_block_heights"),
	blockTransactionTableDDL("confirmed_block_transactions"),
	blockTagTableDDL("confirmed_block_tags"),
	confirmedTransactionTableDDL(),
	confirmedTransactionTagTableDDL(),

	// Strict one-column unique index: the confirmed tier is a single linear
	// chain, so unlike the pending tier's (height, indep_hash) index, at
	// most one indep_hash may ever occupy a given height here. This is what
	// makes the promote() insert-or-ignore in stabilize.go pick exactly one
	// canonical fork per height and have every later promotion statement
	// join through it.
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_confirmed_block_heights ON confirmed_block_heights(height);`,
	`CREATE INDEX IF NOT EXISTS ix_confirmed_block_heights_height ON confirmed_block_heights(height);`,
	`CREATE INDEX IF NOT EXISTS ix_confirmed_block_transactions_block ON confirmed_block_transactions(block_indep_hash);`,
	`CREATE INDEX IF NOT EXISTS ix_confirmed_block_transactions_tx ON confirmed_block_transactions(transaction_id);`,
	`CREATE INDEX IF NOT EXISTS ix_confirmed_transactions_owner ON confirmed_transactions(owner_address);`,
	`CREATE INDEX IF NOT EXISTS ix_confirmed_transactions_target ON confirmed_transactions(target);`,
	`CREATE INDEX IF NOT EXISTS ix_confirmed_transactions_sort ON confirmed_transactions(height, block_transaction_index);`,
	`CREATE INDEX IF NOT EXISTS ix_confirmed_transaction_tags_name_value ON confirmed_transaction_tags(tag_name_hash, tag_value_hash);`,
	`CREATE INDEX IF NOT EXISTS ix_confirmed_transaction_tags_sort ON confirmed_transaction_tags(height, block_transaction_index);`,
}

func blockTableDDL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		indep_hash BLOB PRIMARY KEY,
		height INTEGER NOT NULL,
		previous_block BLOB NOT NULL,
		nonce BLOB NOT NULL,
		hash BLOB NOT NULL,
		block_timestamp INTEGER NOT NULL,
		diff TEXT NOT NULL,
		cumulative_diff TEXT NOT NULL,
		last_retarget INTEGER NOT NULL,
		reward_addr BLOB,
		reward_pool TEXT NOT NULL,
		block_size TEXT NOT NULL,
		weave_size TEXT NOT NULL,
		usd_to_ar_rate_dividend TEXT NOT NULL,
		usd_to_ar_rate_divisor TEXT NOT NULL,
		scheduled_usd_to_ar_rate_dividend TEXT NOT NULL,
		scheduled_usd_to_ar_rate_divisor TEXT NOT NULL,
		hash_list_merkle BLOB,
		wallet_list BLOB,
		tx_root BLOB,
		tx_count INTEGER NOT NULL DEFAULT 0,
		missing_tx_count INTEGER NOT NULL DEFAULT 0
	);`
}

func blockHeightTableDDL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		height INTEGER NOT NULL,
		indep_hash BLOB NOT NULL
	);`
}

func blockTransactionTableDDL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		block_indep_hash BLOB NOT NULL,
		transaction_id BLOB NOT NULL,
		block_transaction_index INTEGER NOT NULL,
		PRIMARY KEY (block_indep_hash, transaction_id)
	);`
}

func blockTagTableDDL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		block_indep_hash BLOB NOT NULL,
		block_tag_index INTEGER NOT NULL,
		tag_name_hash BLOB NOT NULL,
		tag_value_hash BLOB NOT NULL,
		PRIMARY KEY (block_indep_hash, block_tag_index)
	);`
}

func pendingTransactionTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS pending_transactions (
		id BLOB PRIMARY KEY,
		signature BLOB,
		format INTEGER NOT NULL,
		last_tx BLOB,
		owner_address BLOB NOT NULL,
		target BLOB,
		quantity TEXT,
		reward TEXT,
		data_size TEXT,
		data_root BLOB,
		content_type TEXT,
		tag_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);`
}

func confirmedTransactionTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS confirmed_transactions (
		id BLOB PRIMARY KEY,
		signature BLOB,
		format INTEGER NOT NULL,
		last_tx BLOB,
		owner_address BLOB NOT NULL,
		target BLOB,
		quantity TEXT,
		reward TEXT,
		data_size TEXT,
		data_root BLOB,
		content_type TEXT,
		tag_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		height INTEGER NOT NULL,
		block_transaction_index INTEGER NOT NULL
	);`
}

func pendingTransactionTagTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS pending_transaction_tags (
		transaction_id BLOB NOT NULL,
		transaction_tag_index INTEGER NOT NULL,
		tag_name_hash BLOB NOT NULL,
		tag_value_hash BLOB NOT NULL,
		PRIMARY KEY (transaction_id, transaction_tag_index)
	);`
}

func confirmedTransactionTagTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS confirmed_transaction_tags (
		transaction_id BLOB NOT NULL,
		transaction_tag_index INTEGER NOT NULL,
		tag_name_hash BLOB NOT NULL,
		tag_value_hash BLOB NOT NULL,
		height INTEGER NOT NULL,
		block_transaction_index INTEGER NOT NULL,
		PRIMARY KEY (transaction_id, transaction_tag_index)
	);`
}
