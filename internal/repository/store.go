package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const defaultTxTimeout = 5 * time.Second

func init() {
	sqlx.BindDriver(string(DialectSQLite), sqlx.QUESTION)
}

// Options configures Open.
type Options struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
	AutoMigrate     bool
}

// Repos is the set of repositories bound to one executor, either the pool or
// a single transaction.
type Repos struct {
	Users        UserRepository
	Wallets      WalletRepository
	Transactions TransactionRepository
	Loans        LoanRepository
	Repayments   RepaymentRepository
}

// UnitOfWork runs groups of repository calls atomically.
type UnitOfWork interface {
	// WithinTx runs fn inside one read-committed transaction bounded by the
	// store's transaction timeout. fn must only use the Repos it is given.
	WithinTx(ctx context.Context, fn func(r Repos) error) error

	// Repos returns repositories that run outside any transaction.
	Repos() Repos
}

// Store owns the connection pool.
type Store struct {
	db        *sqlx.DB
	dialect   Dialect
	txTimeout time.Duration
	repos     Repos
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

// Open connects to the configured database and optionally migrates it.
func Open(ctx context.Context, opts Options) (*Store, error) {
	dialect := Dialect(strings.ToLower(opts.Driver))

	var (
		db  *sqlx.DB
		err error
	)
	switch dialect {
	case DialectPostgres:
		db, err = sqlx.ConnectContext(ctx, "postgres", opts.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	case DialectSQLite:
		db, err = sqlx.ConnectContext(ctx, "sqlite", sqliteDSN(opts.URL))
		if err != nil {
			return nil, fmt.Errorf("connect sqlite: %w", err)
		}
		// One connection serializes writers and keeps an in-memory database
		// alive for the lifetime of the pool.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	store := NewStore(db, dialect, opts.TxTimeout)

	if opts.AutoMigrate {
		if err := Migrate(store, opts.URL); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return store, nil
}

// NewStore wraps an open connection pool.
func NewStore(db *sqlx.DB, dialect Dialect, txTimeout time.Duration) *Store {
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}
	s := &Store{db: db, dialect: dialect, txTimeout: txTimeout}
	s.repos = s.reposFor(db)
	return s
}

func sqliteDSN(url string) string {
	dsn := strings.TrimPrefix(url, "sqlite://")
	if dsn == "" {
		dsn = ":memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *Store) reposFor(q queryer) Repos {
	return Repos{
		Users:        NewUserRepository(q, s.dialect),
		Wallets:      NewWalletRepository(q, s.dialect),
		Transactions: NewTransactionRepository(q, s.dialect),
		Loans:        NewLoanRepository(q, s.dialect),
		Repayments:   NewRepaymentRepository(q, s.dialect),
	}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Repos() Repos { return s.repos }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) txOptions() *sql.TxOptions {
	if s.dialect == DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return nil
}

// WithinTx implements UnitOfWork. Errors returned by fn are passed through
// after rollback; driver errors are classified as retryable or internal.
func (s *Store) WithinTx(ctx context.Context, fn func(r Repos) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, s.txOptions())
	if err != nil {
		return classify(ctx, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(s.reposFor(tx)); err != nil {
		_ = tx.Rollback()
		return classify(ctx, err)
	}

	if err := tx.Commit(); err != nil {
		return classify(ctx, err)
	}
	return nil
}

// classify maps raw driver errors to the error taxonomy. Business errors
// pass through unchanged.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}
	if IsRetryable(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return customError.WrapRetryable(err)
	}
	return customError.WrapDatabaseError(err)
}

// IsRetryable reports whether err is a timeout or lock contention failure
// that a client may safely retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03", "57014":
			return true
		}
		return false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// base carries what every repository needs.
type base struct {
	q       queryer
	dialect Dialect
}

func (b base) rebind(query string) string {
	return b.q.Rebind(query)
}

// forUpdate returns the row lock clause. SQLite transactions are opened
// with BEGIN IMMEDIATE and hold the database write lock instead.
func (b base) forUpdate() string {
	if b.dialect == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// cents converts an amount for storage. Amounts outside the int64 cents
// range are rejected instead of wrapping.
func cents(d decimal.Decimal) (int64, error) {
	c, err := utils.ToCents(d)
	if err != nil {
		return 0, customError.WrapInvalidAmount(err.Error())
	}
	return c, nil
}

// utc normalizes times read back from the store.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
