package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/domain"
)

// FilesystemBackend stores media on the local filesystem under a
// sharded directory tree.
type FilesystemBackend struct {
	basePath string
	logger   zerolog.Logger
}

// NewFilesystemBackend creates a filesystem backend rooted at basePath.
// The base directory is created if it doesn't exist.
func NewFilesystemBackend(basePath string, logger zerolog.Logger) (*FilesystemBackend, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FilesystemBackend{
		basePath: basePath,
		logger:   logger.With().Str("component", "storage_fs").Logger(),
	}, nil
}

// Store persists content under key. Content is written to a temp file
// first and renamed into place so readers never see partial writes.
func (b *FilesystemBackend) Store(ctx context.Context, key string, reader io.Reader, size int64) error {
	path := ShardedPath(b.basePath, key)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create shard directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write media: %w", err)
	}
	if size > 0 && written != size {
		os.Remove(tmpName)
		return fmt.Errorf("size mismatch: expected %d bytes, wrote %d", size, written)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to place media: %w", err)
	}

	b.logger.Debug().Str("key", key).Int64("size", written).Msg("media stored")
	return nil
}

// Retrieve returns a stream of the content at key.
func (b *FilesystemBackend) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(ShardedPath(b.basePath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to open media: %w", err)
	}
	return f, nil
}

// Delete removes the content at key.
func (b *FilesystemBackend) Delete(ctx context.Context, key string) error {
	err := os.Remove(ShardedPath(b.basePath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrMediaNotFound
		}
		return fmt.Errorf("failed to delete media: %w", err)
	}

	b.logger.Debug().Str("key", key).Msg("media deleted")
	return nil
}

// Exists checks if content is stored under key.
func (b *FilesystemBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(ShardedPath(b.basePath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat media: %w", err)
	}
	return true, nil
}

// List enumerates every stored object.
func (b *FilesystemBackend) List(ctx context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	err := filepath.WalkDir(b.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		objects = append(objects, ObjectInfo{
			Key:     d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	return objects, nil
}

var _ Backend = (*FilesystemBackend)(nil)
