package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mikey/mail-lens/internal/adapters/cache"
	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newConfig() *config.Config {
	return config.NewFromViper(config.NewEmptyViper())
}

func TestCreatePolicy(t *testing.T) {
	cfg := newConfig()
	cfg.Set("classification.other_category", "Другое")
	cfg.Set("classification.other_threshold", 0.5)
	cfg.Set("classification.empty_label", "")

	policy := NewServiceFactory(cfg, zap.NewNop()).CreatePolicy()
	assert.Equal(t, "Другое", policy.OtherCategory)
	assert.Equal(t, 0.5, policy.OtherThreshold)
	assert.Equal(t, 0.3, policy.DisplayThreshold)
	assert.Equal(t, core.DefaultEmptyLabel, policy.EmptyLabel)
}

func TestCreateBatchOptions(t *testing.T) {
	cfg := newConfig()
	cfg.Set("classification.top_n", 2)
	opts := NewServiceFactory(cfg, zap.NewNop()).CreateBatchOptions()
	assert.Equal(t, core.BatchOptions{TopN: 2, Threshold: 0.25}, opts)
}

func TestCreateExportManager(t *testing.T) {
	cfg := newConfig()
	cfg.Set("export.formats", []string{"JSON", "jsonl", "csv"})
	m, err := NewIOFactory(cfg, zap.NewNop()).CreateExportManager()
	require.NoError(t, err)
	assert.NotNil(t, m)

	cfg.Set("export.formats", []string{"xml"})
	_, err = NewIOFactory(cfg, zap.NewNop()).CreateExportManager()
	assert.Error(t, err)
}

func TestCreateCacheRepository(t *testing.T) {
	cfg := newConfig()
	cfg.Set("cache.type", "memory")
	repo, err := NewCacheFactory(cfg, zap.NewNop()).CreateCacheRepository(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, repo)
	repo.Stop()

	cfg.Set("cache.type", "sqlite")
	cfg.Set("cache.sqlite_path", filepath.Join(t.TempDir(), "nested", "emb.db"))
	repo, err = NewCacheFactory(cfg, zap.NewNop()).CreateCacheRepository(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &cache.SQLiteCache{}, repo)
	repo.Stop()

	cfg.Set("cache.type", "floppy")
	_, err = NewCacheFactory(cfg, zap.NewNop()).CreateCacheRepository(context.Background())
	assert.Error(t, err)
}
