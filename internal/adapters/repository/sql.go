package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/pcmatch/internal/domain/solver"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS solves (
	id TEXT PRIMARY KEY,
	round TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	failure_kind TEXT NOT NULL DEFAULT '',
	underserved INTEGER NOT NULL DEFAULT 0,
	underserved_papers TEXT NOT NULL DEFAULT '',
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL,
	result TEXT
);
CREATE INDEX IF NOT EXISTS idx_solves_created ON solves(created_at);
`

const selectFields = `id, round, status, error, failure_kind, underserved,
	underserved_papers, created_at, updated_at, result`

// SQLStore keeps records in SQLite or PostgreSQL.
type SQLStore struct {
	db           *sql.DB
	driver       string
	maxOpenConns int
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens the database and creates the schema if needed.
func NewSQLStore(ctx context.Context, driver, dsn string, opts ...SQLOption) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	s := &SQLStore{driver: driver, maxOpenConns: 8}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	} else {
		db.SetMaxOpenConns(s.maxOpenConns)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.db = db
	return s, nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (s *SQLStore) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}
	start := time.Now()
	defer observe("save", start)

	papers, err := json.Marshal(rec.UnderservedPapers)
	if err != nil {
		return fmt.Errorf("encoding papers: %w", err)
	}
	var result sql.NullString
	if rec.Result != nil {
		b, err := json.Marshal(rec.Result)
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		result = sql.NullString{String: string(b), Valid: true}
	}

	q := s.rebind(`
		INSERT INTO solves (` + selectFields + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			round = excluded.round,
			status = excluded.status,
			error = excluded.error,
			failure_kind = excluded.failure_kind,
			underserved = excluded.underserved,
			underserved_papers = excluded.underserved_papers,
			updated_at = excluded.updated_at,
			result = excluded.result`)
	_, err = s.db.ExecContext(ctx, q,
		rec.ID, rec.Round, string(rec.Status), rec.Error, rec.FailureKind, rec.Underserved,
		string(papers),
		rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(), result,
	)
	if err != nil {
		return fmt.Errorf("saving solve %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Record, error) {
	start := time.Now()
	defer observe("get", start)

	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+selectFields+` FROM solves WHERE id = ?`), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading solve %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	start := time.Now()
	defer observe("list", start)

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+selectFields+` FROM solves ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("listing solves: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning solve: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM solves`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (s *SQLStore) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM solves GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting solves: %w", err)
	}
	defer rows.Close()

	out := make(map[Status]int, 4)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		out[Status(status)] = n
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec       Record
		status    string
		papers    string
		created   int64
		updated   int64
		resultRaw sql.NullString
	)
	err := sc.Scan(&rec.ID, &rec.Round, &status, &rec.Error, &rec.FailureKind, &rec.Underserved,
		&papers, &created, &updated, &resultRaw)
	if err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	if papers != "" && papers != "null" {
		if err := json.Unmarshal([]byte(papers), &rec.UnderservedPapers); err != nil {
			return Record{}, fmt.Errorf("decoding papers: %w", err)
		}
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	if resultRaw.Valid && resultRaw.String != "" {
		var res solver.Result
		if err := json.Unmarshal([]byte(resultRaw.String), &res); err != nil {
			return Record{}, fmt.Errorf("decoding result: %w", err)
		}
		rec.Result = &res
	}
	return rec, nil
}
