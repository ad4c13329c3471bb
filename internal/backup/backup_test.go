package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/munger/internal/embedding"
	"github.com/rcliao/munger/internal/model"
	"github.com/rcliao/munger/internal/store"
	"github.com/rcliao/munger/internal/wisdom"
)

func TestStampsFromKeys(t *testing.T) {
	keys := []string{
		"munger/20260102T080000Z/munger.db",
		"munger/20260101T120000Z/munger.db",
		"munger/20260101T120000Z/wisdom_store.json",
		"munger/notes.txt",
		"munger/garbage/munger.db",
	}
	assert.Equal(t, []string{"20260101T120000Z", "20260102T080000Z"}, stampsFromKeys("munger", keys))
	assert.Empty(t, stampsFromKeys("munger", nil))
	assert.Equal(t, []string{"20260101T120000Z"}, stampsFromKeys("", []string{"20260101T120000Z/munger.db"}))
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{Endpoint: "localhost:9000"}, "munger.db", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// TestPushPull_Integration requires a running MinIO instance.
func TestPushPull_Integration(t *testing.T) {
	endpoint := os.Getenv("MUNGER_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	mc, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := mc.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	src := t.TempDir()
	db, err := store.NewSQLiteStore(filepath.Join(src, "munger.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.CreateProfile(ctx, model.Profile{Name: "Ada"})
	require.NoError(t, err)

	ws, err := wisdom.Open(src, embedding.NewHashEmbedder(32))
	require.NoError(t, err)
	_, err = ws.AddBatch(ctx, []model.WisdomRecord{{Category: model.CategoryQuote, Content: "Invert, always invert."}})
	require.NoError(t, err)

	c := NewWithClient(mc, "munger-test", "it-"+time.Now().Format("150405.000"), "munger.db", nil)
	stamp, err := c.Push(ctx, src, db)
	require.NoError(t, err)

	stamps, err := c.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, stamps, stamp)

	dst := t.TempDir()
	got, err := c.Pull(ctx, dst, "")
	require.NoError(t, err)
	assert.Equal(t, stamp, got)

	restored, err := store.NewSQLiteStore(filepath.Join(dst, "munger.db"))
	require.NoError(t, err)
	defer restored.Close()
	p, err := restored.DefaultProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name)

	rws, err := wisdom.Open(dst, embedding.NewHashEmbedder(32))
	require.NoError(t, err)
	assert.Equal(t, 1, rws.Count())

	_, err = c.Pull(ctx, t.TempDir(), "19990101T000000Z")
	assert.ErrorIs(t, err, ErrNoSnapshots)
}
