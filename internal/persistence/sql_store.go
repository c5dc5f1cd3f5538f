package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SQLRunStore is a RunStore backed by database/sql. It works with SQLite
// and PostgreSQL; the constructors pick the dialect.
//
// The caller is responsible for importing the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//	import _ "github.com/jackc/pgx/v5/stdlib"
type SQLRunStore struct {
	db      *sql.DB
	dialect dialect
}

var _ RunStore = (*SQLRunStore)(nil)

type dialect struct {
	blob        string
	placeholder func(n int) string
}

var (
	sqliteDialect = dialect{
		blob:        "BLOB",
		placeholder: func(int) string { return "?" },
	}
	postgresDialect = dialect{
		blob:        "BYTEA",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
)

// NewSQLiteRunStore initializes the schema in db and returns a store.
func NewSQLiteRunStore(ctx context.Context, db *sql.DB) (*SQLRunStore, error) {
	return newSQLRunStore(ctx, db, sqliteDialect)
}

// NewPostgresRunStore initializes the schema in db and returns a store.
func NewPostgresRunStore(ctx context.Context, db *sql.DB) (*SQLRunStore, error) {
	return newSQLRunStore(ctx, db, postgresDialect)
}

func newSQLRunStore(ctx context.Context, db *sql.DB, d dialect) (*SQLRunStore, error) {
	s := &SQLRunStore{db: db, dialect: d}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLRunStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			plan TEXT NOT NULL,
			status TEXT NOT NULL,
			output %[1]s,
			error TEXT NOT NULL DEFAULT '',
			trace %[1]s,
			started_ns BIGINT NOT NULL,
			duration_ns BIGINT NOT NULL
		)`, s.dialect.blob))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS runs_plan_started ON runs (plan, started_ns)`)
	return err
}

// bind numbers the ? placeholders of q for the store's dialect.
func (s *SQLRunStore) bind(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString(s.dialect.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLRunStore) SaveRun(ctx context.Context, rec *RunRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	e, err := encodeRun(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.bind(`
		INSERT INTO runs (id, plan, status, output, error, trace, started_ns, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			plan = excluded.plan,
			status = excluded.status,
			output = excluded.output,
			error = excluded.error,
			trace = excluded.trace,
			started_ns = excluded.started_ns,
			duration_ns = excluded.duration_ns`),
		e.ID, e.Plan, e.Status, e.Output, e.Err, e.Trace, e.StartedNS, e.DurationNS,
	)
	return err
}

const selectRuns = `SELECT id, plan, status, output, error, trace, started_ns, duration_ns FROM runs`

func (s *SQLRunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, s.bind(selectRuns+` WHERE id = ?`), id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return rec, err
}

func (s *SQLRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error) {
	q := selectRuns + ` WHERE 1=1`
	var args []any
	if filter.Plan != "" {
		q += ` AND plan = ?`
		args = append(args, filter.Plan)
	}
	if filter.Status != "" {
		q += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	q += ` ORDER BY started_ns DESC, id ASC`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.bind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	var e encodedRun
	if err := sc.Scan(&e.ID, &e.Plan, &e.Status, &e.Output, &e.Err, &e.Trace, &e.StartedNS, &e.DurationNS); err != nil {
		return nil, err
	}
	return e.decode()
}
