package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"depression-risk-service/internal/common/database"
)

// ErrNotFound is returned by a Source when a document does not exist.
var ErrNotFound = errors.New("artifact not found")

// Source fetches raw artifact documents for one bundle.
type Source interface {
	// Describe names the source for logs and metadata.
	Describe() string
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// ==========================
// Directory
// ==========================

// DirSource reads <dir>/<name>.json.
type DirSource struct {
	Dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

func (s *DirSource) Describe() string {
	return "dir:" + s.Dir
}

func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(s.Dir, name+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return raw, err
}

// ==========================
// PostgreSQL
// ==========================

const selectArtifactQuery = `SELECT payload FROM model_artifacts WHERE bundle = $1 AND name = $2`

// PostgresSource reads documents from the model_artifacts table.
type PostgresSource struct {
	client *database.PostgresClient
	bundle string
}

func NewPostgresSource(client *database.PostgresClient, bundle string) *PostgresSource {
	return &PostgresSource{client: client, bundle: bundle}
}

func (s *PostgresSource) Describe() string {
	return "postgres:" + s.bundle
}

func (s *PostgresSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	var payload []byte
	err := s.client.QueryRow(ctx, selectArtifactQuery, s.bundle, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, s.bundle, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact %s: %w", name, err)
	}
	return payload, nil
}

// ==========================
// Redis
// ==========================

// RedisSource reads documents stored under <prefix>:<bundle>:<name>.
type RedisSource struct {
	client *database.RedisClient
	prefix string
	bundle string
}

func NewRedisSource(client *database.RedisClient, prefix, bundle string) *RedisSource {
	return &RedisSource{client: client, prefix: prefix, bundle: bundle}
}

func (s *RedisSource) Describe() string {
	return "redis:" + s.prefix + ":" + s.bundle
}

// Key returns the redis key holding the named document.
func (s *RedisSource) Key(name string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, s.bundle, name)
}

func (s *RedisSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	raw, err := s.client.GetBytes(ctx, s.Key(name))
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Key(name))
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", name, err)
	}
	return raw, nil
}

// ==========================
// Fetching
// ==========================

// FetchError names the artifact whose fetch failed.
type FetchError struct {
	Name string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Name, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchAll fetches every named document. With concurrency > 1 documents are
// fetched in parallel; the first failure cancels the rest.
func FetchAll(ctx context.Context, src Source, names []string, concurrency int) (map[string][]byte, error) {
	docs := make([][]byte, len(names))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency < 1 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			raw, err := src.Fetch(gctx, name)
			if err != nil {
				return &FetchError{Name: name, Err: err}
			}
			docs[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(names))
	for i, name := range names {
		out[name] = docs[i]
	}
	return out, nil
}
