package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

const schema = `
CREATE TABLE IF NOT EXISTS playgrounds (
	playground_id TEXT PRIMARY KEY,
	content       TEXT NOT NULL,
	updated_at    BIGINT NOT NULL
)`

// SQL stores tree documents as JSON text in a playgrounds table, one row
// per workspace. It speaks both sqlite and postgres.
type SQL struct {
	db      *sql.DB
	backend Backend
}

// OpenSQLite opens (or creates) a sqlite database file.
func OpenSQLite(path string) (*SQL, error) {
	if path == "" {
		return nil, errors.New("sqlite store needs a database path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; WAL lets readers proceed alongside it.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return newSQL(db, BackendSQLite)
}

// OpenPostgres connects to the database at dsn.
func OpenPostgres(dsn string) (*SQL, error) {
	if dsn == "" {
		return nil, errors.New("postgres store needs a dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return newSQL(db, BackendPostgres)
}

func newSQL(db *sql.DB, backend Backend) (*SQL, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	logging.Debug("opened sql store", "backend", backend)
	return &SQL{db: db, backend: backend}, nil
}

// rebind rewrites ? placeholders as $1, $2... for postgres.
func (s *SQL) rebind(query string) string {
	if s.backend != BackendPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) Load(ctx context.Context, id string) (*tree.Folder, error) {
	defer observe(s.backend, "load", time.Now())

	var content string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT content FROM playgrounds WHERE playground_id = ?`), id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query workspace %s: %w", id, err)
	}
	return tree.Decode([]byte(content))
}

func (s *SQL) Save(ctx context.Context, id string, root *tree.Folder) error {
	defer observe(s.backend, "save", time.Now())

	if err := validID(id); err != nil {
		return err
	}
	content, err := tree.Encode(root)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO playgrounds (playground_id, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (playground_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`),
		id, string(content), time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("upsert workspace %s: %w", id, err)
	}
	return nil
}

func (s *SQL) List(ctx context.Context) ([]Entry, error) {
	defer observe(s.backend, "list", time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT playground_id, LENGTH(content), updated_at FROM playgrounds ORDER BY playground_id`)
	if err != nil {
		return nil, fmt.Errorf("query workspaces: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			updated int64
		)
		if err := rows.Scan(&e.ID, &e.Size, &updated); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.UpdatedAt = time.Unix(0, updated).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQL) Close() error {
	return s.db.Close()
}
