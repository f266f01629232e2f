package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ray/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.TurnStore = (*Store)(nil)

// Store is the SQLite-backed conversation store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at dbPath and applies
// pending migrations. If dbPath is empty, defaults to ~/.ray/ray.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".ray", "ray.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode for concurrent readers alongside the writer
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every NNN_*.up.sql newer than the recorded version, each
// in its own transaction together with its schema_migrations row.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Turn Store ====================

// Append stores turns for a session in one transaction, creating the
// session on first use.
func (s *Store) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	first := turns[0].Timestamp
	last := turns[len(turns)-1].Timestamp
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
	`, sessionID, first.UTC(), last.UTC())
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	for _, t := range turns {
		citations, err := json.Marshal(nonNilCitations(t.Citations))
		if err != nil {
			return fmt.Errorf("marshalling citations: %w", err)
		}
		var metadata sql.NullString
		if t.Metadata != nil {
			data, err := json.Marshal(t.Metadata)
			if err != nil {
				return fmt.Errorf("marshalling metadata: %w", err)
			}
			metadata = sql.NullString{String: string(data), Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO turns (session_id, role, text, created_at, citations, metadata)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sessionID, string(t.Role), t.Text, t.Timestamp.UTC(), string(citations), metadata)
		if err != nil {
			return fmt.Errorf("inserting turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing turns: %w", err)
	}
	return nil
}

// Recent returns the last limit turns of a session, oldest first.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return []domain.Turn{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, text, created_at, citations, metadata FROM (
			SELECT seq, role, text, created_at, citations, metadata
			FROM turns WHERE session_id = ?
			ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent turns: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// History returns every turn of a session, oldest first.
func (s *Store) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, text, created_at, citations, metadata
		FROM turns WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// Sessions lists sessions, most recently updated first.
func (s *Store) Sessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.created_at, s.updated_at, COUNT(t.seq)
		FROM sessions s LEFT JOIN turns t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC, s.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		var sess domain.Session
		if err := rows.Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt, &sess.Turns); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and, by cascade, its turns.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Helper Functions ====================

func scanTurns(rows *sql.Rows) ([]domain.Turn, error) {
	turns := make([]domain.Turn, 0)
	for rows.Next() {
		var (
			t         domain.Turn
			role      string
			createdAt time.Time
			citations string
			metadata  sql.NullString
		)
		if err := rows.Scan(&role, &t.Text, &createdAt, &citations, &metadata); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.Role = domain.Role(role)
		t.Timestamp = createdAt

		if err := json.Unmarshal([]byte(citations), &t.Citations); err != nil {
			return nil, fmt.Errorf("unmarshalling citations: %w", err)
		}
		if metadata.Valid {
			var md domain.TurnMetadata
			if err := json.Unmarshal([]byte(metadata.String), &md); err != nil {
				return nil, fmt.Errorf("unmarshalling metadata: %w", err)
			}
			t.Metadata = &md
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return turns, nil
}

func nonNilCitations(c []domain.Citation) []domain.Citation {
	if c == nil {
		return []domain.Citation{}
	}
	return c
}
