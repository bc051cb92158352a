package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SQLDB implements the Database interface for PostgreSQL and SQLite
type SQLDB struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
}

// Open connects to the database and verifies the connection. SQLite enforces
// foreign keys only when the DSN asks for it (e.g. "newsroom.db?_foreign_keys=on").
func Open(ctx context.Context, driver, dsn string) (*SQLDB, error) {
	sb := sq.StatementBuilder
	switch driver {
	case DriverPostgres:
		sb = sb.PlaceholderFormat(sq.Dollar)
	case DriverSQLite:
		sb = sb.PlaceholderFormat(sq.Question)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLDB{db: db, driver: driver, sb: sb}, nil
}

// Driver returns the database/sql driver name.
func (s *SQLDB) Driver() string { return s.driver }

func (s *SQLDB) base() repo { return repo{q: s.db, sb: s.sb} }

func (s *SQLDB) Topics() TopicRepository             { return &topicRepo{s.base()} }
func (s *SQLDB) Sources() SourceRepository           { return &sourceRepo{s.base()} }
func (s *SQLDB) StyleSamples() StyleSampleRepository { return &styleSampleRepo{s.base()} }
func (s *SQLDB) DeliveryLogs() DeliveryLogRepository { return &deliveryLogRepo{s.base()} }
func (s *SQLDB) Schedules() ScheduleRepository       { return &scheduleRepo{s.base()} }

func (s *SQLDB) Close() error {
	return s.db.Close()
}

func (s *SQLDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies pending migrations for the connected driver.
func (s *SQLDB) Migrate(ctx context.Context) error {
	return NewMigrationManager(s).Migrate(ctx)
}

func (s *SQLDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTx{tx: tx, base: repo{q: tx, sb: s.sb}}, nil
}

// sqlTx implements Transaction interface
type sqlTx struct {
	tx   *sql.Tx
	base repo
}

func (t *sqlTx) Commit() error                       { return t.tx.Commit() }
func (t *sqlTx) Rollback() error                     { return t.tx.Rollback() }
func (t *sqlTx) Topics() TopicRepository             { return &topicRepo{t.base} }
func (t *sqlTx) Sources() SourceRepository           { return &sourceRepo{t.base} }
func (t *sqlTx) StyleSamples() StyleSampleRepository { return &styleSampleRepo{t.base} }
func (t *sqlTx) DeliveryLogs() DeliveryLogRepository { return &deliveryLogRepo{t.base} }
func (t *sqlTx) Schedules() ScheduleRepository       { return &scheduleRepo{t.base} }

// repo carries the connection or transaction a repository runs on.
type repo struct {
	q  queryer
	sb sq.StatementBuilderType
}

func (r repo) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.q.ExecContext(ctx, query, args...)
}

func (r repo) queryRows(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.q.QueryContext(ctx, query, args...)
}

func (r repo) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.q.QueryRowContext(ctx, query, args...), nil
}

// insertReturningID runs an INSERT ... RETURNING id, supported by Postgres and SQLite 3.35+.
func (r repo) insertReturningID(ctx context.Context, b sq.InsertBuilder) (int64, error) {
	row, err := r.queryRow(ctx, b.Suffix("RETURNING id"))
	if err != nil {
		return 0, err
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// expectOne maps an UPDATE that touched no rows to ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
