package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	gerrors "github.com/hearthside-dev/grist/internal/errors"
)

// DefaultDimensions matches the all-MiniLM family of embedding models.
const DefaultDimensions = 384

// Options configures the store.
type Options struct {
	// Dimensions is the embedding vector width. Defaults to DefaultDimensions.
	Dimensions int
}

// Store is the persistent embedding store. A single SQLite database holds
// the metadata table and the FTS5 lexical table; both are written and
// deleted inside one transaction per call, so a crash never leaves them
// disagreeing. The vector graph is derived state rebuilt from the stored
// vector BLOBs on open, which means a restart never re-embeds anything.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	dirLock *flock.Flock
	vectors *vectorIndex
	dims    int
	closed  bool
}

// Open opens (or creates) the store at dir. An empty dir opens an
// in-memory store for testing. A flock on the data directory enforces
// single-process ownership; a second Open of the same dir fails with
// ErrCodeStoreLocked.
func Open(dir string, opts Options) (*Store, error) {
	dims := opts.Dimensions
	if dims == 0 {
		dims = DefaultDimensions
	}

	var dsn string
	var dirLock *flock.Flock
	var dbPath string

	if dir == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, gerrors.StoreError(fmt.Sprintf("create data dir %s", dir), err)
		}

		dirLock = flock.New(filepath.Join(dir, ".grist.lock"))
		locked, err := dirLock.TryLock()
		if err != nil {
			return nil, gerrors.StoreError("acquire data dir lock", err)
		}
		if !locked {
			return nil, gerrors.Newf(gerrors.ErrCodeStoreLocked,
				"data dir %s is locked by another process", dir)
		}

		dbPath = filepath.Join(dir, "grist.db")
		dsn = dbPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		unlock(dirLock)
		return nil, gerrors.StoreError("open database", err)
	}

	// Single connection: serializes writers and keeps :memory: databases
	// from evaporating between pool connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA for modernc.org/sqlite; DSN params are ignored.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			unlock(dirLock)
			return nil, gerrors.StoreError("set pragma", err)
		}
	}

	s := &Store{
		db:      db,
		path:    dbPath,
		dirLock: dirLock,
		vectors: newVectorIndex(dims),
		dims:    dims,
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		unlock(dirLock)
		return nil, gerrors.StoreError("initialize schema", err)
	}

	if err := s.loadVectors(); err != nil {
		_ = db.Close()
		unlock(dirLock)
		return nil, err
	}

	return s, nil
}

func unlock(l *flock.Flock) {
	if l != nil {
		_ = l.Unlock()
	}
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	-- Metadata table; id joins the FTS5 table (rowid) and the vector graph.
	-- AUTOINCREMENT keeps ids monotonic and never reused after deletion.
	CREATE TABLE IF NOT EXISTS embeddings_meta (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		source_type TEXT NOT NULL,
		source_id   TEXT,
		content     TEXT NOT NULL,
		metadata    TEXT,
		vector      BLOB NOT NULL,
		created_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_meta_source
		ON embeddings_meta(source_type, source_id);

	-- Lexical index; rowid is set explicitly to the metadata id.
	CREATE VIRTUAL TABLE IF NOT EXISTS embeddings_fts USING fts5(
		content,
		tokenize='unicode61'
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// loadVectors rebuilds the in-memory vector graph from the stored BLOBs.
func (s *Store) loadVectors() error {
	rows, err := s.db.Query(`SELECT id, source_type, vector FROM embeddings_meta ORDER BY id`)
	if err != nil {
		return gerrors.StoreError("load vectors", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var st string
		var blob []byte
		if err := rows.Scan(&id, &st, &blob); err != nil {
			return gerrors.StoreError("scan vector row", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return gerrors.New(gerrors.ErrCodeCorruptStore,
				fmt.Sprintf("record %d has a corrupt vector", id), err)
		}
		if err := s.vectors.add(id, SourceType(st), vec); err != nil {
			return gerrors.New(gerrors.ErrCodeCorruptStore,
				fmt.Sprintf("record %d: %s", id, err.Error()), err)
		}
	}
	return rows.Err()
}

// Insert writes a record to the metadata table and the FTS5 table in one
// transaction, then adds its vector to the graph. Returns the assigned id.
// The record's ID field is ignored.
func (s *Store) Insert(ctx context.Context, rec Record) (int64, error) {
	if _, err := ParseSourceType(string(rec.SourceType)); err != nil {
		return 0, err
	}
	if strings.TrimSpace(rec.Content) == "" {
		return 0, gerrors.Newf(gerrors.ErrCodeInvalidInput, "record content is empty")
	}
	if len(rec.Vector) != s.dims {
		return 0, gerrors.Newf(gerrors.ErrCodeDimensionMismatch,
			"vector has %d dimensions, store expects %d", len(rec.Vector), s.dims)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, gerrors.Newf(gerrors.ErrCodeStoreClosed, "store is closed")
	}

	var metaJSON any
	if len(rec.Metadata) > 0 {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return 0, gerrors.ValidationError("marshal metadata", err)
		}
		metaJSON = string(b)
	}

	var sourceID any
	if rec.SourceID != "" {
		sourceID = rec.SourceID
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, gerrors.StoreError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO embeddings_meta (source_type, source_id, content, metadata, vector, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(rec.SourceType), sourceID, rec.Content, metaJSON,
		encodeVector(rec.Vector), createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, gerrors.StoreError("insert metadata", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, gerrors.StoreError("read inserted id", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO embeddings_fts (rowid, content) VALUES (?, ?)`,
		id, rec.Content); err != nil {
		return 0, gerrors.StoreError("insert lexical row", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, gerrors.StoreError("commit insert", err)
	}

	if err := s.vectors.add(id, rec.SourceType, rec.Vector); err != nil {
		return 0, gerrors.New(gerrors.ErrCodeInternal, "add vector", err)
	}

	return id, nil
}

// DeleteBySource removes every record of sourceType, or only those with the
// given sourceID when it is non-empty. The metadata and FTS5 rows go in one
// transaction; vectors leave the graph after commit. Returns the number of
// records removed. Deleting a missing source removes nothing and is not an
// error.
func (s *Store) DeleteBySource(ctx context.Context, sourceType SourceType, sourceID string) (int, error) {
	if _, err := ParseSourceType(string(sourceType)); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, gerrors.Newf(gerrors.ErrCodeStoreClosed, "store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, gerrors.StoreError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT id FROM embeddings_meta WHERE source_type = ?`
	args := []any{string(sourceType)}
	if sourceID != "" {
		query += ` AND source_id = ?`
		args = append(args, sourceID)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, gerrors.StoreError("collect ids for delete", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, gerrors.StoreError("scan id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, gerrors.StoreError("iterate ids", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	idArgs := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		idArgs[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM embeddings_meta WHERE id IN (%s)", inClause), idArgs...); err != nil {
		return 0, gerrors.StoreError("delete metadata rows", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM embeddings_fts WHERE rowid IN (%s)", inClause), idArgs...); err != nil {
		return 0, gerrors.StoreError("delete lexical rows", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, gerrors.StoreError("commit delete", err)
	}

	s.vectors.remove(ids)
	return len(ids), nil
}

// LexicalQuery runs a full-text query and returns raw bm25 scores, best
// (most negative) first, ties broken by ascending id. A blank query or one
// with no indexable terms returns no hits. FTS5 syntax errors from exotic
// input are treated as no results, matching how a search box should behave.
func (s *Store) LexicalQuery(ctx context.Context, query string, limit int, types []SourceType) ([]LexicalHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, gerrors.Newf(gerrors.ErrCodeStoreClosed, "store is closed")
	}
	if limit <= 0 {
		return []LexicalHit{}, nil
	}

	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		return []LexicalHit{}, nil
	}
	matchExpr := strings.Join(terms, " ")

	sqlQuery := `
		SELECT embeddings_fts.rowid, bm25(embeddings_fts) AS score
		FROM embeddings_fts`
	args := []any{}
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		sqlQuery += `
		JOIN embeddings_meta m ON m.id = embeddings_fts.rowid
		WHERE embeddings_fts MATCH ? AND m.source_type IN (` + strings.Join(placeholders, ",") + `)`
		args = append([]any{matchExpr}, args...)
	} else {
		sqlQuery += `
		WHERE embeddings_fts MATCH ?`
		args = append(args, matchExpr)
	}
	sqlQuery += `
		ORDER BY score, embeddings_fts.rowid
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return []LexicalHit{}, nil
		}
		return nil, gerrors.StoreError("lexical query", err)
	}
	defer rows.Close()

	var hits []LexicalHit
	for rows.Next() {
		var h LexicalHit
		if err := rows.Scan(&h.ID, &h.Score); err != nil {
			return nil, gerrors.StoreError("scan lexical hit", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.StoreError("iterate lexical hits", err)
	}
	if hits == nil {
		hits = []LexicalHit{}
	}
	return hits, nil
}

// VectorQuery returns the limit nearest records by cosine distance,
// optionally filtered to the given source types.
func (s *Store) VectorQuery(ctx context.Context, query []float32, limit int, types []SourceType) ([]VectorHit, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, gerrors.Newf(gerrors.ErrCodeStoreClosed, "store is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits, err := s.vectors.search(query, limit, types)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeDimensionMismatch, err)
	}
	return hits, nil
}

// GetRecords fetches metadata rows in bulk. Vectors are not loaded; search
// only needs content and provenance. Missing ids are simply absent from the
// result map.
func (s *Store) GetRecords(ctx context.Context, ids []int64) (map[int64]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, gerrors.Newf(gerrors.ErrCodeStoreClosed, "store is closed")
	}

	out := make(map[int64]Record, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, source_type, source_id, content, metadata, created_at
		 FROM embeddings_meta WHERE id IN (%s)`,
		strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, gerrors.StoreError("fetch records", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec Record
		var st string
		var sourceID, metaJSON sql.NullString
		var createdAt string
		if err := rows.Scan(&rec.ID, &st, &sourceID, &rec.Content, &metaJSON, &createdAt); err != nil {
			return nil, gerrors.StoreError("scan record", err)
		}
		rec.SourceType = SourceType(st)
		rec.SourceID = sourceID.String
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &rec.Metadata); err != nil {
				return nil, gerrors.New(gerrors.ErrCodeCorruptStore,
					fmt.Sprintf("record %d has corrupt metadata", rec.ID), err)
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = t
		}
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

// Stats returns record counts, total and per source type.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Stats{}, gerrors.Newf(gerrors.ErrCodeStoreClosed, "store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_type, COUNT(*) FROM embeddings_meta GROUP BY source_type`)
	if err != nil {
		return Stats{}, gerrors.StoreError("query stats", err)
	}
	defer rows.Close()

	stats := Stats{ByType: make(map[SourceType]int)}
	for rows.Next() {
		var st string
		var count int
		if err := rows.Scan(&st, &count); err != nil {
			return Stats{}, gerrors.StoreError("scan stats", err)
		}
		stats.ByType[SourceType(st)] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

// Dimensions returns the configured vector width.
func (s *Store) Dimensions() int { return s.dims }

// Verify cross-checks the metadata table, the FTS5 table, and the vector
// graph. Used by the doctor command.
func (s *Store) Verify(ctx context.Context) (ConsistencyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ConsistencyReport{}, gerrors.Newf(gerrors.ErrCodeStoreClosed, "store is closed")
	}

	metaIDs, err := s.collectIDs(ctx, `SELECT id FROM embeddings_meta ORDER BY id`)
	if err != nil {
		return ConsistencyReport{}, err
	}
	ftsIDs, err := s.collectIDs(ctx, `SELECT rowid FROM embeddings_fts ORDER BY rowid`)
	if err != nil {
		return ConsistencyReport{}, err
	}

	ftsSet := make(map[int64]struct{}, len(ftsIDs))
	for _, id := range ftsIDs {
		ftsSet[id] = struct{}{}
	}
	vecSet := make(map[int64]struct{})
	for _, id := range s.vectors.liveIDs() {
		vecSet[id] = struct{}{}
	}
	metaSet := make(map[int64]struct{}, len(metaIDs))
	for _, id := range metaIDs {
		metaSet[id] = struct{}{}
	}

	report := ConsistencyReport{
		MetadataCount: len(metaIDs),
		LexicalCount:  len(ftsIDs),
		VectorCount:   len(vecSet),
	}
	for _, id := range metaIDs {
		if _, ok := ftsSet[id]; !ok {
			report.MissingLexical = append(report.MissingLexical, id)
		}
		if _, ok := vecSet[id]; !ok {
			report.MissingVector = append(report.MissingVector, id)
		}
	}
	for _, id := range ftsIDs {
		if _, ok := metaSet[id]; !ok {
			report.OrphanLexical = append(report.OrphanLexical, id)
		}
	}
	return report, nil
}

func (s *Store) collectIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, gerrors.StoreError("collect ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, gerrors.StoreError("scan id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database and releases the directory lock.
// Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.db.Close()
	unlock(s.dirLock)
	if err != nil {
		return gerrors.StoreError("close database", err)
	}
	return nil
}

// tokenizeQuery extracts lowercase word terms for an FTS5 MATCH expression.
// Stripping punctuation up front avoids FTS5 query syntax errors on raw
// user input.
func tokenizeQuery(q string) []string {
	return strings.Fields(strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, q)))
}

// encodeVector packs a vector as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a vector encoded by encodeVector.
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
