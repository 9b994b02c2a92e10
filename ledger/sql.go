package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger/migrations"
	_ "modernc.org/sqlite"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"
)

// SQLStore persists ledger state in Postgres or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect string
	log     *slog.Logger
}

// NewPostgresStore opens a Postgres-backed store through the pgx driver and
// applies the embedded migrations.
func NewPostgresStore(ctx context.Context, dsn string, log *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return newSQLStore(ctx, db, dialectPostgres, log)
}

// NewSQLiteStore opens a SQLite-backed store at path (":memory:" for a
// throwaway database) and applies the embedded migrations.
func NewSQLiteStore(ctx context.Context, path string, log *slog.Logger) (*SQLStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	// A single connection keeps one :memory: database alive and serializes writers.
	db.SetMaxOpenConns(1)

	return newSQLStore(ctx, db, dialectSQLite, log)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect string, log *slog.Logger) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := &SQLStore{db: db, dialect: dialect, log: log}
	if err := s.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// runMigrations sets up goose with the embedded migrations and runs them.
func (s *SQLStore) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(s.dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return err
	}

	version, err := goose.GetDBVersionContext(ctx, s.db)
	if err != nil {
		return err
	}
	s.log.Info("State store schema ready", "dialect", s.dialect, "version", version)
	return nil
}

// rebind converts '?' placeholders to the '$n' form Postgres expects.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Get(ctx context.Context, table interfaces.Table, scope interfaces.Scope, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT value FROM ledger_rows WHERE table_name = ? AND scope = ? AND row_key = ?`),
		string(table), string(scope), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrRowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %s/%s/%s: %w", table, scope, key, err)
	}
	return value, nil
}

func (s *SQLStore) List(ctx context.Context, table interfaces.Table, scope interfaces.Scope) ([]interfaces.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT table_name, scope, row_key, value, seq FROM ledger_rows WHERE table_name = ? AND scope = ?`),
		string(table), string(scope),
	)
	if err != nil {
		return nil, fmt.Errorf("could not list %s/%s: %w", table, scope, err)
	}
	return scanRows(rows)
}

func (s *SQLStore) Dump(ctx context.Context) ([]interfaces.Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT table_name, scope, row_key, value, seq FROM ledger_rows`)
	if err != nil {
		return nil, fmt.Errorf("could not dump rows: %w", err)
	}
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]interfaces.Row, error) {
	defer rows.Close()

	var result []interfaces.Row
	for rows.Next() {
		var (
			row          interfaces.Row
			table, scope string
			seq          int64
		)
		if err := rows.Scan(&table, &scope, &row.Key, &row.Value, &seq); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		row.Table = interfaces.Table(table)
		row.Scope = interfaces.Scope(scope)
		row.Seq = uint64(seq)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Sorted here since text collation differs between Postgres and SQLite.
	sortRows(result)
	return result, nil
}

func (s *SQLStore) Apply(ctx context.Context, record interfaces.ActionRecord, writes []interfaces.Write) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var head int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ledger_actions`).Scan(&head); err != nil {
		return fmt.Errorf("could not read head: %w", err)
	}
	if record.Seq <= uint64(head) {
		return interfaces.ErrSequenceConflict
	}

	upsert := s.rebind(`INSERT INTO ledger_rows (table_name, scope, row_key, value, seq) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (table_name, scope, row_key) DO UPDATE SET value = excluded.value, seq = excluded.seq`)
	for _, w := range writes {
		if _, err := tx.ExecContext(ctx, upsert, string(w.Table), string(w.Scope), w.Key, w.Value, int64(record.Seq)); err != nil {
			return fmt.Errorf("could not write %s/%s/%s: %w", w.Table, w.Scope, w.Key, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		s.rebind(`INSERT INTO ledger_actions (seq, action, actor, hash, created_at, writes) VALUES (?, ?, ?, ?, ?, ?)`),
		int64(record.Seq), record.Action, record.Actor.String(), record.Hash.Hex(), record.Timestamp, record.Writes,
	)
	if err != nil {
		return fmt.Errorf("could not append action %d: %w", record.Seq, err)
	}

	return tx.Commit()
}

func (s *SQLStore) Head(ctx context.Context) (uint64, error) {
	var head int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ledger_actions`).Scan(&head); err != nil {
		return 0, fmt.Errorf("could not read head: %w", err)
	}
	return uint64(head), nil
}

func (s *SQLStore) Actions(ctx context.Context, from uint64, limit int) ([]interfaces.ActionRecord, error) {
	query := `SELECT seq, action, actor, hash, created_at, writes FROM ledger_actions WHERE seq >= ? ORDER BY seq`
	args := []any{int64(from)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("could not list actions: %w", err)
	}
	defer rows.Close()

	var records []interfaces.ActionRecord
	for rows.Next() {
		var (
			record      interfaces.ActionRecord
			seq         int64
			actor, hash string
		)
		if err := rows.Scan(&seq, &record.Action, &actor, &hash, &record.Timestamp, &record.Writes); err != nil {
			return nil, fmt.Errorf("could not scan action: %w", err)
		}
		record.Seq = uint64(seq)
		if record.Actor, err = interfaces.NewIdentityFromHex(actor); err != nil {
			return nil, fmt.Errorf("corrupt actor in action %d: %w", seq, err)
		}
		record.Hash = common.HexToHash(hash)
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
