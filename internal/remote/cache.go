package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cacheMeta is the sidecar persisted next to each cached blob.
type cacheMeta struct {
	Rev            string    `json:"rev"`
	ServerModified time.Time `json:"server_modified"`
}

// FileCache keeps local copies of remote documents keyed by a hash of their
// remote path. Before reusing a cached copy it revalidates the stored
// revision token with a metadata call, so an unchanged document costs one
// round trip instead of a download.
type FileCache struct {
	store  Store
	dir    string
	logger *zap.Logger
}

func NewFileCache(store Store, dir string, logger *zap.Logger) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return &FileCache{store: store, dir: dir, logger: logger}, nil
}

// Resolve returns a local path holding the current contents of remotePath.
// A failed metadata check is treated as "changed" and falls through to a
// full download; a failed download is returned to the caller, never a
// missing or partial file. Concurrent resolves of the same path may both
// download; the blob is replaced atomically so the later write wins intact.
func (c *FileCache) Resolve(ctx context.Context, remotePath string) (string, error) {
	blobPath := c.blobPath(remotePath)
	metaPath := blobPath + ".meta.json"

	if meta, ok := c.readMeta(metaPath); ok && fileExists(blobPath) {
		rev, err := c.store.GetMetadata(ctx, remotePath)
		if err != nil {
			c.logger.Warn("remote metadata check failed, re-downloading",
				zap.String("path", remotePath),
				zap.Error(err))
		} else if rev == meta.Rev {
			return blobPath, nil
		}
	}

	data, rev, modified, err := c.store.Download(ctx, remotePath)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", remotePath, err)
	}

	if err := c.writeAtomic(blobPath, data); err != nil {
		return "", err
	}
	sidecar, err := json.Marshal(cacheMeta{Rev: rev, ServerModified: modified})
	if err != nil {
		return "", fmt.Errorf("encoding cache metadata: %w", err)
	}
	if err := c.writeAtomic(metaPath, sidecar); err != nil {
		return "", err
	}
	return blobPath, nil
}

func (c *FileCache) blobPath(remotePath string) string {
	sum := sha256.Sum256([]byte(remotePath))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:]))
}

func (c *FileCache) readMeta(metaPath string) (cacheMeta, bool) {
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return cacheMeta{}, false
	}
	var meta cacheMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return cacheMeta{}, false
	}
	return meta, true
}

// writeAtomic replaces path in one step so readers never observe a partial
// file.
func (c *FileCache) writeAtomic(path string, data []byte) error {
	tmp := path + "." + uuid.New().String() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
