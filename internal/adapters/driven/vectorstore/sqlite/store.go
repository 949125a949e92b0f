// Package sqlite provides a SQLite-backed vector store. Chunks, their
// embeddings and the index metadata are persisted in a single database
// file; similarity queries are brute-force cosine scans, which is ample
// for the single-machine transcript collections verbatim targets.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/vectorstore"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/vectorstore/sqlite/migrations"
	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// IndexName is the fixed name of the single on-disk collection.
const IndexName = "voice-memory"

// Store is a SQLite-backed implementation of driven.VectorStore.
type Store struct {
	db           *sql.DB
	path         string
	notReadyWait time.Duration
}

// Option configures the store.
type Option func(*Store)

// WithNotReadyWait bounds how long Search polls for the index to become
// ready before failing with domain.ErrIndexNotReady. Zero fails immediately.
func WithNotReadyWait(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.notReadyWait = d
		}
	}
}

// NewStore creates a SQLite vector store at the specified data directory.
// If dataDir is empty, defaults to ~/.verbatim/data/vectors.db.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".verbatim", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vectors.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if err := s.reconcileStatus(); err != nil {
		db.Close()
		return nil, err
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

// migrate applies any pending .up.sql migrations in version order.
func (s *Store) migrate(fsys embed.FS) error {
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
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// reconcileStatus marks the index stale when stored vectors no longer match
// the recorded dimension (a schema change made outside normal operation).
func (s *Store) reconcileStatus() error {
	meta, err := s.readMetadata(context.Background())
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var mismatched int
	row := s.db.QueryRow("SELECT COUNT(*) FROM chunks WHERE LENGTH(embedding) != ?", meta.Dimension*4)
	if err := row.Scan(&mismatched); err != nil {
		return fmt.Errorf("checking vector dimensions: %w", err)
	}
	if mismatched > 0 && meta.Status != domain.IndexStale {
		if _, err := s.db.Exec("UPDATE index_metadata SET status = ? WHERE name = ?",
			string(domain.IndexStale), meta.Name); err != nil {
			return fmt.Errorf("marking index stale: %w", err)
		}
	}
	return nil
}

// EnsureIndex creates the index metadata if absent. A repeat call with
// identical parameters is a no-op; a different dimension is refused
// because it requires a deliberate full re-embed.
func (s *Store) EnsureIndex(ctx context.Context, dimension int, metric domain.SimilarityMetric) error {
	if dimension <= 0 {
		return fmt.Errorf("ensure index: %w: dimension %d", domain.ErrInvalidInput, dimension)
	}
	if metric != domain.MetricCosine {
		return fmt.Errorf("ensure index: %w: unsupported metric %q", domain.ErrInvalidInput, metric)
	}

	meta, err := s.readMetadata(ctx)
	if err == nil {
		if meta.Dimension != dimension {
			return fmt.Errorf("ensure index: index %q has dimension %d, requested %d: %w",
				meta.Name, meta.Dimension, dimension, domain.ErrIndexDimensionMismatch)
		}
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	// Created as building, promoted to ready once the insert is confirmed.
	// The two statements are one transaction so a crash never leaves a
	// permanently-building index.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ensure index: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_metadata (name, dimension, metric, status) VALUES (?, ?, ?, ?)
	`, IndexName, dimension, string(metric), string(domain.IndexBuilding)); err != nil {
		return fmt.Errorf("ensure index: creating metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE index_metadata SET status = ? WHERE name = ?
	`, string(domain.IndexReady), IndexName); err != nil {
		return fmt.Errorf("ensure index: confirming readiness: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ensure index: committing: %w", err)
	}
	return nil
}

// Upsert stores a chunk with its embedding. Idempotent by chunk ID; the
// insertion sequence survives replacement so tie-breaking stays stable.
func (s *Store) Upsert(ctx context.Context, chunk domain.Chunk, vector []float32) error {
	if err := chunk.Validate(); err != nil {
		return fmt.Errorf("upsert %q: %w", chunk.ID, err)
	}

	meta, err := s.readMetadata(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("upsert %q: %w", chunk.ID, domain.ErrIndexNotReady)
		}
		return err
	}
	if len(vector) != meta.Dimension {
		return fmt.Errorf("upsert %q: vector has %d dimensions, index wants %d: %w",
			chunk.ID, len(vector), meta.Dimension, domain.ErrIndexDimensionMismatch)
	}

	speakersJSON, err := json.Marshal(chunk.SpeakerIDs)
	if err != nil {
		return fmt.Errorf("upsert %q: marshalling speakers: %w", chunk.ID, err)
	}
	utterancesJSON, err := json.Marshal(chunk.Utterances)
	if err != nil {
		return fmt.Errorf("upsert %q: marshalling utterances: %w", chunk.ID, err)
	}

	truncated := 0
	if chunk.Truncated {
		truncated = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, transcript_id, ordinal, speakers, utterances, content,
			start_ms, end_ms, truncated, embedding, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM chunks))
		ON CONFLICT(id) DO UPDATE SET
			transcript_id = excluded.transcript_id,
			ordinal = excluded.ordinal,
			speakers = excluded.speakers,
			utterances = excluded.utterances,
			content = excluded.content,
			start_ms = excluded.start_ms,
			end_ms = excluded.end_ms,
			truncated = excluded.truncated,
			embedding = excluded.embedding,
			updated_at = CURRENT_TIMESTAMP
	`, chunk.ID, chunk.TranscriptID, chunk.Ordinal, string(speakersJSON), string(utterancesJSON),
		chunk.Text, chunk.StartMS, chunk.EndMS, truncated, float32SliceToBytes(vector))
	if err != nil {
		return fmt.Errorf("upsert %q: %w", chunk.ID, err)
	}
	return nil
}

// Search returns at most k hits by descending cosine similarity, ties
// broken by insertion order.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("search: k must be >= 1, got %d: %w", k, domain.ErrInvalidQuery)
	}

	meta, err := s.awaitReady(ctx)
	if err != nil {
		return nil, err
	}
	if len(query) != meta.Dimension {
		return nil, fmt.Errorf("search: query has %d dimensions, index wants %d: %w",
			len(query), meta.Dimension, domain.ErrInvalidQuery)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, embedding, seq FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var hits []vectorstore.RankedHit
	for rows.Next() {
		var id string
		var blob []byte
		var seq int64
		if err := rows.Scan(&id, &blob, &seq); err != nil {
			return nil, fmt.Errorf("search: scanning row: %w", err)
		}
		hits = append(hits, vectorstore.RankedHit{
			Hit: driven.VectorHit{ChunkID: id, Score: vectorstore.Cosine(query, bytesToFloat32Slice(blob))},
			Seq: seq,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return vectorstore.TopK(hits, k), nil
}

// GetChunk retrieves a stored chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transcript_id, ordinal, speakers, utterances, content,
			start_ms, end_ms, truncated
		FROM chunks WHERE id = ?
	`, id)

	var chunk domain.Chunk
	var speakersJSON, utterancesJSON string
	var truncated int
	err := row.Scan(&chunk.ID, &chunk.TranscriptID, &chunk.Ordinal, &speakersJSON,
		&utterancesJSON, &chunk.Text, &chunk.StartMS, &chunk.EndMS, &truncated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get chunk %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk %q: %w", id, err)
	}

	if err := json.Unmarshal([]byte(speakersJSON), &chunk.SpeakerIDs); err != nil {
		return nil, fmt.Errorf("get chunk %q: unmarshalling speakers: %w", id, err)
	}
	if err := json.Unmarshal([]byte(utterancesJSON), &chunk.Utterances); err != nil {
		return nil, fmt.Errorf("get chunk %q: unmarshalling utterances: %w", id, err)
	}
	chunk.Truncated = truncated != 0
	return &chunk, nil
}

// Metadata returns the index metadata.
func (s *Store) Metadata(ctx context.Context) (*domain.IndexMetadata, error) {
	return s.readMetadata(ctx)
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks")
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (s *Store) readMetadata(ctx context.Context) (*domain.IndexMetadata, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT name, dimension, metric, status FROM index_metadata WHERE name = ?", IndexName)

	var meta domain.IndexMetadata
	var metric, status string
	err := row.Scan(&meta.Name, &meta.Dimension, &metric, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading index metadata: %w", err)
	}
	meta.Metric = domain.SimilarityMetric(metric)
	meta.Status = domain.IndexStatus(status)
	return &meta, nil
}

// awaitReady polls for a ready index up to the configured wait.
func (s *Store) awaitReady(ctx context.Context) (*domain.IndexMetadata, error) {
	deadline := time.Now().Add(s.notReadyWait)
	for {
		meta, err := s.readMetadata(ctx)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// Fall through to wait
		case err != nil:
			return nil, err
		case meta.Status == domain.IndexReady:
			return meta, nil
		case meta.Status == domain.IndexStale:
			return nil, fmt.Errorf("search: index is stale, re-embedding required: %w", domain.ErrIndexNotReady)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("search: %w", domain.ErrIndexNotReady)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
