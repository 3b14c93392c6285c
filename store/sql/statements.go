package sql

import "github.com/jmoiron/sqlx"

// statementCatalog holds the prepared statements for the ingestion hot
// path: one INSERT per row kind, insert-or-ignore on the primary key, so
// replays are idempotent. Grounded on the teacher's
// background_jobs/jobs/clear_blocks.go, which prepares its DELETE once via
// sqlx.Preparex and reuses it; here the same idiom is used for every
// per-row INSERT a block ingest performs.
type statementCatalog struct {
	insertTagName             *sqlx.Stmt
	insertTagValue             *sqlx.Stmt
	insertWallet                *sqlx.Stmt
	insertPendingBlock           *sqlx.Stmt
	insertPendingBlockHeight      *sqlx.Stmt
	insertPendingBlockTransaction *sqlx.Stmt
	insertPendingBlockTag         *sqlx.Stmt
	insertPendingTransaction      *sqlx.Stmt
	insertPendingTransactionTag   *sqlx.Stmt
	insertMissingTransaction      *sqlx.Stmt
}

func prepareStatements(db *sqlx.DB) (*statementCatalog, error) {
	c := &statementCatalog{}

	stmts := []struct {
		dst   **sqlx.Stmt
		query string
	}{
		{&c.insertTagName, `INSERT OR IGNORE INTO tag_names (hash, name) VALUES ($1, $2)`},
		{&c.insertTagValue, `INSERT OR IGNORE INTO tag_values (hash, value) VALUES ($1, $2)`},
		{&c.insertWallet, `INSERT OR IGNORE INTO wallets (address, public_modulus) VALUES ($1, $2)`},
		{&c.insertPendingBlock, pendingBlockInsertQuery},
		{&c.insertPendingBlockHeight, `INSERT OR IGNORE INTO pending_block_heights (height, indep_hash) VALUES ($1, $2)`},
		{&c.insertPendingBlockTransaction, `INSERT OR IGNORE INTO pending_block_transactions (block_indep_hash, transaction_id, block_transaction_index) VALUES ($1, $2, $3)`},
		{&c.insertPendingBlockTag, `INSERT OR IGNORE INTO pending_block_tags (block_indep_hash, block_tag_index, tag_name_hash, tag_value_hash) VALUES ($1, $2, $3, $4)`},
		{&c.insertPendingTransaction, pendingTransactionInsertQuery},
		{&c.insertPendingTransactionTag, `INSERT OR IGNORE INTO pending_transaction_tags (transaction_id, transaction_tag_index, tag_name_hash, tag_value_hash) VALUES ($1, $2, $3, $4)`},
		{&c.insertMissingTransaction, `INSERT OR IGNORE INTO missing_transactions (block_indep_hash, transaction_id, height) VALUES ($1, $2, $3)`},
	}

	for _, s := range stmts {
		stmt, err := db.Preparex(s.query)
		if err != nil {
			c.Close()
			return nil, err
		}
		*s.dst = stmt
	}

	return c, nil
}

const pendingBlockInsertQuery = `
	INSERT OR IGNORE INTO pending_blocks (
		indep_hash, height, previous_block, nonce, hash, block_timestamp,
		diff, cumulative_diff, last_retarget, reward_addr, reward_pool,
		block_size, weave_size, usd_to_ar_rate_dividend, usd_to_ar_rate_divisor,
		scheduled_usd_to_ar_rate_dividend, scheduled_usd_to_ar_rate_divisor,
		hash_list_merkle, wallet_list, tx_root, tx_count, missing_tx_count
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
	)`

const pendingTransactionInsertQuery = `
	INSERT OR IGNORE INTO pending_transactions (
		id, signature, format, last_tx, owner_address, target, quantity,
		reward, data_size, data_root, content_type, tag_count, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	)`

func (c *statementCatalog) Close() {
	for _, stmt := range []*sqlx.Stmt{
		c.insertTagName,
		c.insertTagValue,
		c.insertWallet,
		c.insertPendingBlock,
		c.insertPendingBlockHeight,
		c.insertPendingBlockTransaction,
		c.insertPendingBlockTag,
		c.insertPendingTransaction,
		c.insertPendingTransactionTag,
		c.insertMissingTransaction,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
}
