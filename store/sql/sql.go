// Package sql is the SQLite-backed implementation of store.Store. It
// follows the teacher repo's blocktx/store/sql convention: a thin struct
// wrapping a single *sqlx.DB, one file per operation, gocore timing stats
// around every exported store operation, and zerolog logging on the write
// paths (ingest, stabilization, height reset).
package sql

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/gommon/random"
	"github.com/ordishs/gocore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/weave-gateway/chainindex/store"
)

// Tunable constants, shipped with the defaults from the specification.
const (
	// StableFlushInterval is the block-height modulus that triggers
	// stabilization after a successful ingest.
	StableFlushInterval = 50

	// MaxForkDepth is the platform's canonical reorganization depth: the
	// stabilization engine never promotes a block newer than tip - this.
	MaxForkDepth = 50

	// NewTxCleanupWaitSecs bounds how long a loose (never-mined) pending
	// transaction survives after ingestion.
	NewTxCleanupWaitSecs = 86400

	// BlockTransactionIndexBound is the multiplier used by the
	// height*bound+index cursor comparison; every supported block must
	// have fewer transactions than this.
	BlockTransactionIndexBound = 1000
)

const driverName = "sqlite"

func init() {
	gocore.NewStat("chainindex")
}

// Config carries the tunables for opening the storage engine. The core
// does not load this from the environment or a file itself (that is the
// surrounding process's job); it is constructed and passed in by the
// caller.
type Config struct {
	// Path is the on-disk database file. Ignored when Memory is true.
	Path string
	// Memory opens a private, uniquely-named in-memory database, the
	// pattern used by the teacher's test fixtures.
	Memory bool
	// MaxOpenConns bounds the connection pool. SQLite in WAL mode
	// tolerates a handful of readers alongside the single writer.
	MaxOpenConns int
}

// SQL is the SQLite-backed store.Store implementation.
type SQL struct {
	db     *sqlx.DB
	stmts  *statementCatalog
	logger zerolog.Logger
}

// New opens (creating if necessary) the SQLite database described by cfg,
// applies the WAL-mode pragmas, creates the schema, and compiles the
// prepared-statement catalog.
func New(cfg Config) (*SQL, error) {
	dsn, err := dsnFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite DB")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "could not enable foreign key support")
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}

	stmts, err := prepareStatements(db)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to prepare statement catalog")
	}

	logger := log.With().Str("component", "chainindex").Logger()

	return &SQL{
		db:     db,
		stmts:  stmts,
		logger: logger,
	}, nil
}

func dsnFor(cfg Config) (string, error) {
	if cfg.Memory {
		return fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout=10000&_pragma=journal_mode=WAL", random.String(16)), nil
	}

	if cfg.Path == "" {
		return "", errors.New("sql: Config.Path must be set unless Memory is true")
	}

	return fmt.Sprintf("%s?cache=shared&_pragma=busy_timeout=10000&_pragma=journal_mode=WAL", cfg.Path), nil
}

// Close releases the underlying handle and its prepared statements.
func (s *SQL) Close() error {
	s.stmts.Close()
	return s.db.Close()
}

var _ store.Store = (*SQL)(nil)

// rowsAffected is a small helper mirroring the teacher's
// background_jobs/jobs pattern of logging the affected-row count after a
// bulk DELETE/INSERT.
func rowsAffected(res sql.Result) int64 {
	n, _ := res.RowsAffected()
	return n
}
