package sink

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name        string
	Placeholder func(n int) string
	Types       map[regdata.ColumnType]string
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: func(int) string { return "?" },
		Types: map[regdata.ColumnType]string{
			regdata.TypeInt:    "INTEGER",
			regdata.TypeYear:   "INTEGER",
			regdata.TypeFloat:  "REAL",
			regdata.TypeDate:   "TEXT",
			regdata.TypeString: "TEXT",
		},
	}
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		Types: map[regdata.ColumnType]string{
			regdata.TypeInt:    "BIGINT",
			regdata.TypeYear:   "INTEGER",
			regdata.TypeFloat:  "DOUBLE PRECISION",
			regdata.TypeDate:   "DATE",
			regdata.TypeString: "TEXT",
		},
	}
)

// SQLSink appends a table's rows to a SQL table, creating it when missing.
// All rows are written in one transaction.
type SQLSink struct {
	db      *sql.DB
	dialect Dialect
	table   string
	ownsDB  bool
}

// NewSQLSink writes to table through db. The caller keeps ownership of db.
func NewSQLSink(db *sql.DB, dialect Dialect, table string) *SQLSink {
	if table == "" {
		table = DefaultTable
	}
	return &SQLSink{db: db, dialect: dialect, table: table}
}

func openSQLite(ctx context.Context, rest string) (*SQLSink, error) {
	path, rawQuery, _ := strings.Cut(rest, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, &regerr.WriteError{Dest: rest, Err: err}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &regerr.WriteError{Dest: path, Err: fmt.Errorf("open sqlite: %w", err)}
	}
	s := NewSQLSink(db, SQLite, q.Get("table"))
	s.ownsDB = true
	return s, nil
}

func openPostgres(ctx context.Context, dest string) (*SQLSink, error) {
	u, err := url.Parse(dest)
	if err != nil {
		return nil, &regerr.WriteError{Dest: dest, Err: err}
	}
	q := u.Query()
	table := q.Get("table")
	q.Del("table")
	u.RawQuery = q.Encode()

	db, err := sql.Open("postgres", u.String())
	if err != nil {
		return nil, &regerr.WriteError{Dest: u.Redacted(), Err: fmt.Errorf("open postgres: %w", err)}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &regerr.WriteError{Dest: u.Redacted(), Err: fmt.Errorf("connect postgres: %w", err)}
	}
	s := NewSQLSink(db, Postgres, table)
	s.ownsDB = true
	return s, nil
}

// CreateStatement returns the CREATE TABLE statement for t's columns.
func (s *SQLSink) CreateStatement(t *regdata.ResultTable) string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		typ, ok := s.dialect.Types[c.Type]
		if !ok {
			typ = s.dialect.Types[regdata.TypeString]
		}
		defs[i] = pq.QuoteIdentifier(c.Name) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pq.QuoteIdentifier(s.table), strings.Join(defs, ", "))
}

// InsertStatement returns the parameterized INSERT for t's columns.
func (s *SQLSink) InsertStatement(t *regdata.ResultTable) string {
	names := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = pq.QuoteIdentifier(c.Name)
		marks[i] = s.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(s.table), strings.Join(names, ", "), strings.Join(marks, ", "))
}

func (s *SQLSink) Write(ctx context.Context, t *regdata.ResultTable) (loc string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", &regerr.WriteError{Dest: s.table, Err: fmt.Errorf("begin: %w", err)}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, s.CreateStatement(t)); err != nil {
		return "", &regerr.WriteError{Dest: s.table, Err: fmt.Errorf("create table: %w", err)}
	}

	insert := s.InsertStatement(t)
	args := make([]any, len(t.Columns))
	for i := range t.Rows {
		for j, c := range t.Columns {
			args[j] = t.Value(i, c.Name)
		}
		if _, err = tx.ExecContext(ctx, insert, args...); err != nil {
			return "", &regerr.WriteError{Dest: s.table, Err: fmt.Errorf("insert row %d: %w", i, err)}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", &regerr.WriteError{Dest: s.table, Err: fmt.Errorf("commit: %w", err)}
	}
	return s.table, nil
}

// Close closes the database when the sink opened it.
func (s *SQLSink) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
