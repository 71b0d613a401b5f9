package boundary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bsaid97/go-border-snapper/logger"
)

// Cache stores boundary documents by name. Entries are immutable, so writers
// racing on one name converge on the same content.
type Cache interface {
	Get(ctx context.Context, name string) ([]byte, bool, error)
	Put(ctx context.Context, name string, data []byte) error
}

// FileCache keeps documents as files under Dir.
type FileCache struct {
	Dir string
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{Dir: dir}, nil
}

// Path is where name lives on disk.
func (c *FileCache) Path(name string) string {
	return filepath.Join(c.Dir, filepath.Base(name))
}

func (c *FileCache) Get(_ context.Context, name string) ([]byte, bool, error) {
	data, err := os.ReadFile(c.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put writes to a temp file in Dir and renames it into place.
// Has reports whether name is cached without reading it.
func (c *FileCache) Has(name string) bool {
	info, err := os.Stat(c.Path(name))
	return err == nil && info.Mode().IsRegular()
}

func (c *FileCache) Put(_ context.Context, name string, data []byte) error {
	tmp, err := os.CreateTemp(c.Dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.Path(name))
}

// RedisCache shares documents between instances.
type RedisCache struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

// OpenRedis returns nil when addr is empty.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	logger.L().Debug("redis_open", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func (c *RedisCache) Get(ctx context.Context, name string) ([]byte, bool, error) {
	data, err := c.Client.Get(ctx, c.Prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Put(ctx context.Context, name string, data []byte) error {
	return c.Client.Set(ctx, c.Prefix+name, data, c.TTL).Err()
}
