// Package store keeps encoded containers in a sqlite database, keyed by the
// xxhash digest of the original content.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/seiflotfy/pairhuff"
	"github.com/seiflotfy/pairhuff/internal/report"
)

const defaultCacheSize = 128

// ErrNotFound is returned when no blob has the requested digest.
var ErrNotFound = errors.New("blob not found")

// Entry describes a stored blob.
type Entry struct {
	Digest          string    `json:"digest"`
	Name            string    `json:"name"`
	OriginalBytes   int       `json:"originalBytes"`
	ContainerBytes  int       `json:"containerBytes"`
	DistinctSymbols int       `json:"distinctSymbols"`
	Created         time.Time `json:"created"`
}

// Config holds configuration for the store.
type Config struct {
	CacheSize int
	Logger    *logrus.Logger
	Encoder   *pairhuff.Encoder
}

// Option is a functional option for configuring the store.
type Option func(*Config)

// WithCacheSize sets how many decoded blobs are kept in memory.
func WithCacheSize(n int) Option {
	return func(c *Config) {
		c.CacheSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithEncoder sets the codec used for Put and Get.
func WithEncoder(e *pairhuff.Encoder) Option {
	return func(c *Config) {
		c.Encoder = e
	}
}

// Store is a sqlite backed blob store.
type Store struct {
	db    *sql.DB
	enc   *pairhuff.Encoder
	cache *lru.Cache[string, []byte]
	log   *logrus.Logger
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Encoder == nil {
		cfg.Encoder = pairhuff.NewEncoder()
	}

	cache, err := lru.New[string, []byte](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS
			blobs
		(
			digest TEXT NOT NULL PRIMARY KEY,
			name TEXT NOT NULL,
			originalBytes INTEGER NOT NULL,
			distinctSymbols INTEGER NOT NULL,
			created TEXT NOT NULL,
			container BLOB NOT NULL
		)
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, enc: cfg.Encoder, cache: cache, log: cfg.Logger}, nil
}

// Put encodes data and stores it under its digest. Storing the same content
// twice replaces the name and keeps a single row. Odd-length data is rejected
// with pairhuff.ErrInvalidInput, whatever the encoder's length setting, since
// its trailing byte would not come back from Get.
func (s *Store) Put(ctx context.Context, name string, data []byte) (Entry, error) {
	c, stats, err := s.enc.EncodeWithStats(data)
	if err != nil {
		return Entry{}, err
	}
	if stats.DroppedTrailingByte {
		return Entry{}, fmt.Errorf("%w: odd length %d, trailing byte cannot be stored", pairhuff.ErrInvalidInput, len(data))
	}
	container, err := c.MarshalBinary()
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		Digest:          report.Digest(data),
		Name:            name,
		OriginalBytes:   len(data),
		ContainerBytes:  len(container),
		DistinctSymbols: stats.DistinctSymbols,
		Created:         time.Now().UTC().Truncate(time.Second),
	}
	s.log.WithFields(logrus.Fields{
		"digest":    e.Digest,
		"name":      name,
		"original":  e.OriginalBytes,
		"container": e.ContainerBytes,
	}).Debug("[store] put")

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO
			blobs
				(
					digest, name, originalBytes, distinctSymbols, created, container
				)
		VALUES
				(?, ?, ?, ?, ?, ?)
	`, e.Digest, e.Name, e.OriginalBytes, e.DistinctSymbols, e.Created.Format(time.RFC3339), container)
	if err != nil {
		return Entry{}, fmt.Errorf("insert %s: %w", e.Digest, err)
	}
	s.cache.Remove(e.Digest)
	return e, nil
}

func (s *Store) row(ctx context.Context, digest string) (Entry, []byte, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT
		digest,
		name,
		originalBytes,
		distinctSymbols,
		created,
		container
	FROM
		blobs
	WHERE
		digest = ?`, digest)

	var e Entry
	var created string
	var container []byte
	err := row.Scan(&e.Digest, &e.Name, &e.OriginalBytes, &e.DistinctSymbols, &created, &container)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, nil, ErrNotFound
	} else if err != nil {
		return Entry{}, nil, fmt.Errorf("lookup %s: %w", digest, err)
	}
	e.Created, err = time.Parse(time.RFC3339, created)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("parse created for %s: %w", digest, err)
	}
	e.ContainerBytes = len(container)
	return e, container, nil
}

// Stat returns the metadata of the blob with digest.
func (s *Store) Stat(ctx context.Context, digest string) (Entry, error) {
	e, _, err := s.row(ctx, digest)
	return e, err
}

// Container returns the serialized container of the blob with digest.
func (s *Store) Container(ctx context.Context, digest string) ([]byte, error) {
	_, container, err := s.row(ctx, digest)
	return container, err
}

// Get returns the decoded content of the blob with digest.
func (s *Store) Get(ctx context.Context, digest string) ([]byte, error) {
	if data, ok := s.cache.Get(digest); ok {
		s.log.WithField("digest", digest).Debug("[store] cache hit")
		return append([]byte(nil), data...), nil
	}

	_, container, err := s.row(ctx, digest)
	if err != nil {
		return nil, err
	}
	data, err := s.enc.Decompress(container)
	if err != nil {
		s.log.WithError(err).WithField("digest", digest).Error("[store] stored container does not decode")
		return nil, fmt.Errorf("decode %s: %w", digest, err)
	}
	s.cache.Add(digest, data)
	return append([]byte(nil), data...), nil
}

// Delete removes the blob with digest.
func (s *Store) Delete(ctx context.Context, digest string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE digest = ?`, digest)
	if err != nil {
		return fmt.Errorf("delete %s: %w", digest, err)
	}
	s.cache.Remove(digest)
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
