package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	artist    TEXT,
	filename  TEXT NOT NULL UNIQUE,
	embedding BLOB,
	single_x  REAL,
	single_y  REAL,
	joint_x   REAL,
	joint_y   REAL
)`

// Store is a SQLite-backed record store. Every patch is a single UPDATE
// statement so concurrent readers never observe a half-written coordinate
// pair.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (and if needed creates) the items database at dbPath.
// Use ":memory:" for an in-memory database.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps the serving endpoint's reads from blocking pipeline writes.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating items table: %w", err)
	}

	logger.Debug("store opened", zap.String("db_path", dbPath))

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// columns maps a policy to its coordinate column pair. Column names come from
// this fixed map only, never from caller input.
func columns(p Policy) (x, y string, err error) {
	switch p {
	case PolicyIndependent:
		return "single_x", "single_y", nil
	case PolicyJoint:
		return "joint_x", "joint_y", nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrBadPolicy, p)
	}
}

// refArgs returns the WHERE clause and arguments resolving a Ref by id or
// filename. Autoincrement ids start at 1, so the zero id never matches.
func refArgs(r Ref) (string, []any) {
	if r.filename != "" {
		return "filename = ?", []any{r.filename}
	}
	return "id = ?", []any{r.id}
}

// Upsert inserts a new record or merges non-absent fields into the existing
// row with the same filename (or id, when given). Absent fields keep their
// previous value: merge is per field, not whole-row replacement.
func (s *Store) Upsert(ctx context.Context, r Record) (int64, error) {
	var (
		blob                   any
		sx, sy, jx, jy, artist any
	)
	if r.Embedding != nil {
		blob = encodeFloat32(r.Embedding)
	}
	if r.Independent != nil {
		sx, sy = r.Independent.X, r.Independent.Y
	}
	if r.Joint != nil {
		jx, jy = r.Joint.X, r.Joint.Y
	}
	if r.Artist != "" {
		artist = r.Artist
	}

	if r.ID != 0 {
		res, err := s.db.ExecContext(ctx, `
			UPDATE items SET
				artist    = COALESCE(?, artist),
				filename  = COALESCE(NULLIF(?, ''), filename),
				embedding = COALESCE(?, embedding),
				single_x  = COALESCE(?, single_x),
				single_y  = COALESCE(?, single_y),
				joint_x   = COALESCE(?, joint_x),
				joint_y   = COALESCE(?, joint_y)
			WHERE id = ?`,
			artist, r.Filename, blob, sx, sy, jx, jy, r.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("updating record id=%d: %w", r.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("updating record id=%d: %w", r.ID, err)
		}
		if n == 0 {
			return 0, fmt.Errorf("id=%d: %w", r.ID, ErrNotFound)
		}
		return r.ID, nil
	}

	if r.Filename == "" {
		return 0, fmt.Errorf("upsert requires a filename or an id")
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO items (artist, filename, embedding, single_x, single_y, joint_x, joint_y)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			artist    = COALESCE(excluded.artist, items.artist),
			embedding = COALESCE(excluded.embedding, items.embedding),
			single_x  = COALESCE(excluded.single_x, items.single_x),
			single_y  = COALESCE(excluded.single_y, items.single_y),
			joint_x   = COALESCE(excluded.joint_x, items.joint_x),
			joint_y   = COALESCE(excluded.joint_y, items.joint_y)
		RETURNING id`,
		artist, r.Filename, blob, sx, sy, jx, jy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting %s: %w", r.Filename, err)
	}

	return id, nil
}

// All returns every record ordered by id, with HasEmbedding derived.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, artist, filename, embedding, single_x, single_y, joint_x, joint_y
		FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	return out, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec            Record
		artist         sql.NullString
		blob           []byte
		sx, sy, jx, jy sql.NullFloat64
	)
	if err := rows.Scan(&rec.ID, &artist, &rec.Filename, &blob, &sx, &sy, &jx, &jy); err != nil {
		return Record{}, fmt.Errorf("scanning record: %w", err)
	}

	rec.Artist = artist.String
	if blob != nil {
		emb, err := decodeFloat32(blob)
		if err != nil {
			return Record{}, fmt.Errorf("record id=%d: %w", rec.ID, err)
		}
		rec.Embedding = emb
		rec.HasEmbedding = true
	}
	if sx.Valid && sy.Valid {
		rec.Independent = &Projection{X: sx.Float64, Y: sy.Float64}
	}
	if jx.Valid && jy.Valid {
		rec.Joint = &Projection{X: jx.Float64, Y: jy.Float64}
	}

	return rec, nil
}

// Get returns one record by id or filename.
func (s *Store) Get(ctx context.Context, ref Ref) (Record, error) {
	where, args := refArgs(ref)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, artist, filename, embedding, single_x, single_y, joint_x, joint_y
		FROM items WHERE `+where, args...)
	if err != nil {
		return Record{}, fmt.Errorf("reading record %s: %w", ref, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Record{}, fmt.Errorf("reading record %s: %w", ref, err)
		}
		return Record{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}

	return scanRecord(rows)
}

// Embedding returns the stored vector for one record, or nil when the record
// exists but has not been embedded yet.
func (s *Store) Embedding(ctx context.Context, ref Ref) ([]float32, error) {
	where, args := refArgs(ref)

	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT embedding FROM items WHERE "+where, args...,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading embedding for %s: %w", ref, err)
	}
	if blob == nil {
		return nil, nil
	}

	return decodeFloat32(blob)
}

// Filename resolves a record's filename by id or filename.
func (s *Store) Filename(ctx context.Context, ref Ref) (string, error) {
	where, args := refArgs(ref)

	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT filename FROM items WHERE "+where, args...,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading filename for %s: %w", ref, err)
	}

	return name, nil
}

// PatchEmbedding writes the vector for one record in a single UPDATE.
func (s *Store) PatchEmbedding(ctx context.Context, ref Ref, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("refusing to patch %s with an empty embedding", ref)
	}
	where, args := refArgs(ref)
	args = append([]any{encodeFloat32(embedding)}, args...)

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET embedding = ? WHERE "+where, args...,
	)
	if err != nil {
		return fmt.Errorf("patching embedding for %s: %w", ref, err)
	}
	return oneRow(res, ref)
}

// PatchProjection writes one policy's coordinate pair in a single UPDATE,
// leaving the other policy's columns untouched.
func (s *Store) PatchProjection(ctx context.Context, ref Ref, policy Policy, p Projection) error {
	x, y, err := columns(policy)
	if err != nil {
		return err
	}
	where, args := refArgs(ref)
	args = append([]any{p.X, p.Y}, args...)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE items SET %s = ?, %s = ? WHERE %s", x, y, where), args...,
	)
	if err != nil {
		return fmt.Errorf("patching %s projection for %s: %w", policy, ref, err)
	}
	return oneRow(res, ref)
}

// ClearEmbedding sets one record's embedding back to absent without deleting
// the row.
func (s *Store) ClearEmbedding(ctx context.Context, ref Ref) error {
	where, args := refArgs(ref)

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET embedding = NULL WHERE "+where, args...,
	)
	if err != nil {
		return fmt.Errorf("clearing embedding for %s: %w", ref, err)
	}
	return oneRow(res, ref)
}

// ClearProjections bulk-clears every row's coordinates for one policy family.
func (s *Store) ClearProjections(ctx context.Context, policy Policy) error {
	x, y, err := columns(policy)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE items SET %s = NULL, %s = NULL", x, y),
	); err != nil {
		return fmt.Errorf("clearing %s projections: %w", policy, err)
	}
	return nil
}

// DeleteAll removes every record.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM items"); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	return nil
}

// Points returns the viewer payload: every record with a complete joint-policy
// coordinate pair, in a single read with no further computation.
func (s *Store) Points(ctx context.Context) ([]Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, joint_x, joint_y
		FROM items
		WHERE joint_x IS NOT NULL AND joint_y IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing points: %w", err)
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.ID, &p.Filename, &p.X, &p.Y); err != nil {
			return nil, fmt.Errorf("scanning point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing points: %w", err)
	}

	return out, nil
}

func oneRow(res sql.Result, ref Ref) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update for %s: %w", ref, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return nil
}
