// Package backup copies the data directory to S3-compatible object storage.
//
// Each push is a snapshot set under <prefix>/<stamp>/ holding the SQLite
// database (taken with VACUUM INTO) and the two wisdom store files. Stamps
// are UTC times that sort lexically in push order.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/rcliao/munger/internal/wisdom"
)

const stampLayout = "20060102T150405Z"

var (
	ErrNotConfigured = errors.New("backup not configured: set backup.endpoint, backup.access_key and backup.secret_key")
	ErrNoSnapshots   = errors.New("no snapshots found")
)

// Snapshotter writes a consistent copy of the database to dest.
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

type Client struct {
	mc     *minio.Client
	bucket string
	prefix string
	dbName string
	logger *zap.Logger
}

// New connects to the configured endpoint. dbName is the database file
// name inside the data directory.
func New(cfg Config, dbName string, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return NewWithClient(mc, cfg.Bucket, cfg.Prefix, dbName, logger), nil
}

func NewWithClient(mc *minio.Client, bucket, prefix, dbName string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		mc:     mc,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		dbName: dbName,
		logger: logger.Named("backup"),
	}
}

func (c *Client) key(stamp, name string) string {
	return path.Join(c.prefix, stamp, name)
}

func (c *Client) ensureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}
	c.logger.Info("created bucket", zap.String("bucket", c.bucket))
	return nil
}

// Push uploads a new snapshot set and returns its stamp. Wisdom files that
// do not exist yet are skipped.
func (c *Client) Push(ctx context.Context, dataDir string, db Snapshotter) (string, error) {
	if err := c.ensureBucket(ctx); err != nil {
		return "", err
	}
	stamp := time.Now().UTC().Format(stampLayout)

	tmp, err := os.MkdirTemp("", "munger-backup-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmp)

	snap := filepath.Join(tmp, c.dbName)
	if err := db.Snapshot(ctx, snap); err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}

	uploads := map[string]string{c.dbName: snap}
	for _, name := range []string{wisdom.RecordsFile, wisdom.EmbeddingsFile} {
		p := filepath.Join(dataDir, name)
		if _, err := os.Stat(p); err == nil {
			uploads[name] = p
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}

	for name, src := range uploads {
		info, err := c.mc.FPutObject(ctx, c.bucket, c.key(stamp, name), src, minio.PutObjectOptions{})
		if err != nil {
			return "", fmt.Errorf("upload %s: %w", name, err)
		}
		c.logger.Debug("uploaded", zap.String("key", info.Key), zap.Int64("size", info.Size))
	}
	c.logger.Info("pushed snapshot", zap.String("stamp", stamp), zap.Int("files", len(uploads)))
	return stamp, nil
}

// List returns snapshot stamps, oldest first.
func (c *Client) List(ctx context.Context) ([]string, error) {
	var keys []string
	prefix := c.prefix
	if prefix != "" {
		prefix += "/"
	}
	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			resp := minio.ToErrorResponse(obj.Err)
			if resp.Code == "NoSuchBucket" {
				return nil, nil
			}
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return stampsFromKeys(c.prefix, keys), nil
}

// stampsFromKeys extracts the distinct, well-formed stamps directly under
// prefix.
func stampsFromKeys(prefix string, keys []string) []string {
	seen := make(map[string]bool)
	var stamps []string
	for _, k := range keys {
		rest := strings.TrimPrefix(strings.TrimPrefix(k, prefix), "/")
		stamp, _, ok := strings.Cut(rest, "/")
		if !ok || seen[stamp] {
			continue
		}
		if _, err := time.Parse(stampLayout, stamp); err != nil {
			continue
		}
		seen[stamp] = true
		stamps = append(stamps, stamp)
	}
	sort.Strings(stamps)
	return stamps
}

// Pull downloads one snapshot set into dataDir, replacing the files there.
// An empty stamp means the latest. The database must not be open.
func (c *Client) Pull(ctx context.Context, dataDir, stamp string) (string, error) {
	if stamp == "" {
		stamps, err := c.List(ctx)
		if err != nil {
			return "", err
		}
		if len(stamps) == 0 {
			return "", ErrNoSnapshots
		}
		stamp = stamps[len(stamps)-1]
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}

	got := 0
	for _, name := range []string{c.dbName, wisdom.RecordsFile, wisdom.EmbeddingsFile} {
		ok, err := c.download(ctx, c.key(stamp, name), filepath.Join(dataDir, name))
		if err != nil {
			return "", fmt.Errorf("download %s: %w", name, err)
		}
		if ok {
			got++
		}
	}
	if got == 0 {
		return "", fmt.Errorf("snapshot %s: %w", stamp, ErrNoSnapshots)
	}
	c.logger.Info("pulled snapshot", zap.String("stamp", stamp), zap.Int("files", got))
	return stamp, nil
}

// download writes an object to dest through a temp file in the same
// directory. A missing object reports false.
func (c *Client) download(ctx context.Context, key, dest string) (bool, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return false, err
	}
	defer obj.Close()
	if _, err := obj.Stat(); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
			return false, nil
		}
		return false, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".pull-*")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	return true, os.Rename(tmp.Name(), dest)
}
