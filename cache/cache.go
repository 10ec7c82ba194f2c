// Package cache stores compiled chunks in SQLite, keyed by the SHA-256 of
// the source text they were compiled from.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"kotovm/koto"
)

var log = commonlog.GetLogger("koto.cache")

const schema = `CREATE TABLE IF NOT EXISTS chunks (
	source_hash TEXT PRIMARY KEY,
	image BLOB NOT NULL,
	image_version INTEGER NOT NULL,
	created_at INTEGER NOT NULL
)`

// Store is a compiled chunk cache backed by a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key returns the cache key for source.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the chunk compiled from source, if cached. Entries written by
// a different image version are treated as misses.
func (s *Store) Get(ctx context.Context, source string) (*koto.Chunk, bool, error) {
	key := Key(source)
	var image []byte
	var version int
	err := s.db.QueryRowContext(ctx,
		`SELECT image, image_version FROM chunks WHERE source_hash = ?`, key,
	).Scan(&image, &version)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debugf("miss %s", key[:12])
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: lookup %s: %w", key, err)
	}
	if version != koto.ImageVersion {
		log.Debugf("stale %s (image version %d)", key[:12], version)
		return nil, false, nil
	}

	chunk, err := koto.UnmarshalChunk(image)
	if err != nil {
		return nil, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	log.Debugf("hit %s", key[:12])
	return chunk, true, nil
}

// Put stores the chunk compiled from source, replacing any previous entry.
func (s *Store) Put(ctx context.Context, source string, chunk *koto.Chunk) error {
	image, err := koto.MarshalChunk(chunk)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chunks (source_hash, image, image_version, created_at) VALUES (?, ?, ?, ?)`,
		Key(source), image, koto.ImageVersion, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache: store: %w", err)
	}
	return nil
}

// CompileFunc compiles source text on a cache miss.
type CompileFunc func(source string) (*koto.Chunk, error)

// Compile returns the cached chunk for source or compiles it with compile
// (koto.Compile when nil) and caches the result. Cache failures are logged
// and fall back to compiling.
func (s *Store) Compile(ctx context.Context, source string, compile CompileFunc) (*koto.Chunk, error) {
	if compile == nil {
		compile = koto.Compile
	}

	chunk, ok, err := s.Get(ctx, source)
	if err != nil {
		log.Errorf("%s", err.Error())
	}
	if ok {
		return chunk, nil
	}

	chunk, err = compile(source)
	if err != nil {
		return nil, err
	}
	if err := s.Put(ctx, source, chunk); err != nil {
		log.Errorf("%s", err.Error())
	}
	return chunk, nil
}
