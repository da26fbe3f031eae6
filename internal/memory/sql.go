package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // networked backend
	_ "modernc.org/sqlite"             // embedded backend (pure Go)
)

// SQLStore implements Store over database/sql. The same code path serves
// both backends; only the schema DDL differs.
type SQLStore struct {
	db     *sql.DB
	driver string

	// beforeInsert, when set, runs between the seq read and the insert.
	// Tests use it to interleave a competing writer.
	beforeInsert func(tx *sql.Tx, sessionKey string, seq int64) error
}

// Open connects to the turn store selected by the connection URL and
// ensures the schema exists.
func Open(url string) (*SQLStore, error) {
	be, err := parseURL(url)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(be.driver, be.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLStore{db: db, driver: be.driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// migrate creates the turns table. MySQL needs a bounded key column;
// SQLite does not distinguish.
func (s *SQLStore) migrate() error {
	var schema string
	if s.driver == "mysql" {
		schema = `
		CREATE TABLE IF NOT EXISTS turns (
			session_key    VARCHAR(191) NOT NULL,
			seq            BIGINT NOT NULL,
			human_text     TEXT NOT NULL,
			assistant_text TEXT NOT NULL,
			created_at     TIMESTAMP NOT NULL,
			PRIMARY KEY (session_key, seq)
		)`
	} else {
		schema = `
		CREATE TABLE IF NOT EXISTS turns (
			session_key    TEXT NOT NULL,
			seq            INTEGER NOT NULL,
			human_text     TEXT NOT NULL,
			assistant_text TEXT NOT NULL,
			created_at     TIMESTAMP NOT NULL,
			PRIMARY KEY (session_key, seq)
		)`
	}

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// History returns every turn for the session, oldest first.
func (s *SQLStore) History(ctx context.Context, sessionKey string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, human_text, assistant_text, created_at
		FROM turns
		WHERE session_key = ?
		ORDER BY seq ASC
	`, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// Recent returns the last n turns for the session, oldest first.
func (s *SQLStore) Recent(ctx context.Context, sessionKey string, n int) ([]Turn, error) {
	if n <= 0 {
		return []Turn{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, human_text, assistant_text, created_at
		FROM turns
		WHERE session_key = ?
		ORDER BY seq DESC
		LIMIT ?
	`, sessionKey, n)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}

	// Rows came newest-first; callers want arrival order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Append writes one turn at the next sequence position for the session.
// The read-and-insert runs in a transaction so a concurrent History never
// observes a partial turn. A conflicting writer from another process can
// race us to the same seq; the primary key rejects the loser and we retry
// exactly once.
func (s *SQLStore) Append(ctx context.Context, sessionKey, human, assistant string) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := s.appendOnce(ctx, sessionKey, human, assistant); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("append turn: %w", lastErr)
}

func (s *SQLStore) appendOnce(ctx context.Context, sessionKey, human, assistant string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var last int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM turns WHERE session_key = ?
	`, sessionKey).Scan(&last)
	if err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	if s.beforeInsert != nil {
		if err := s.beforeInsert(tx, sessionKey, last+1); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (session_key, seq, human_text, assistant_text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionKey, last+1, human, assistant, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	return tx.Commit()
}

// Stats returns store statistics for diagnostics.
func (s *SQLStore) Stats(ctx context.Context) map[string]any {
	var sessions, turns int
	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT session_key) FROM turns`).Scan(&sessions)
	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns`).Scan(&turns)

	return map[string]any{
		"sessions": sessions,
		"turns":    turns,
		"backend":  s.driver,
	}
}

func scanTurns(rows *sql.Rows) ([]Turn, error) {
	turns := []Turn{}
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Seq, &t.Human, &t.Assistant, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}
