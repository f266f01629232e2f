package flat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ray/internal/core/domain"
)

const docstoreSchema = `
CREATE TABLE chunks (
	position     INTEGER PRIMARY KEY,
	id           TEXT NOT NULL UNIQUE,
	content      TEXT NOT NULL,
	source_file  TEXT NOT NULL,
	format       TEXT NOT NULL,
	kind         TEXT NOT NULL,
	location     TEXT NOT NULL,
	start_offset INTEGER
);
CREATE INDEX idx_chunks_source ON chunks(source_file);
`

// locationRow is the JSON shape of a stored domain.Location.
type locationRow struct {
	Page      int    `json:"page,omitempty"`
	Heading   string `json:"heading,omitempty"`
	Paragraph int    `json:"paragraph,omitempty"`
	Row       *int   `json:"row,omitempty"`
	Sheet     string `json:"sheet,omitempty"`
	Label     string `json:"label,omitempty"`
}

// writeDocstore creates a fresh side-table database at path.
func writeDocstore(ctx context.Context, path string, chunks []domain.Chunk) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening docstore: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, docstoreSchema); err != nil {
		return fmt.Errorf("creating docstore schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (position, id, content, source_file, format, kind, location, start_offset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for pos, c := range chunks {
		loc, err := json.Marshal(locationRow(c.Provenance.Location))
		if err != nil {
			return fmt.Errorf("marshalling location: %w", err)
		}
		var offset sql.NullInt64
		if c.StartOffset != nil {
			offset = sql.NullInt64{Int64: int64(*c.StartOffset), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, pos, c.ID, c.Content, c.Provenance.SourceFile,
			string(c.Provenance.Format), string(c.Provenance.Kind), string(loc), offset); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// readDocstore loads chunks ordered by vector position. The file is opened
// read-only so a missing docstore is an error rather than a new database.
func readDocstore(ctx context.Context, path string) ([]domain.Chunk, error) {
	dsn := (&url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening docstore: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT position, id, content, source_file, format, kind, location, start_offset
		FROM chunks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var (
			pos          int
			c            domain.Chunk
			format, kind string
			locJSON      string
			offset       sql.NullInt64
		)
		if err := rows.Scan(&pos, &c.ID, &c.Content, &c.Provenance.SourceFile,
			&format, &kind, &locJSON, &offset); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if pos != len(chunks) {
			return nil, fmt.Errorf("docstore position gap at %d", len(chunks))
		}
		var loc locationRow
		if err := json.Unmarshal([]byte(locJSON), &loc); err != nil {
			return nil, fmt.Errorf("decoding location of %s: %w", c.ID, err)
		}
		c.Provenance.Format = domain.Format(format)
		c.Provenance.Kind = domain.SegmentKind(kind)
		c.Provenance.Location = domain.Location(loc)
		if offset.Valid {
			o := int(offset.Int64)
			c.StartOffset = &o
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
