package cache

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"campusnews/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ttl = 30 * time.Minute

func newTestCache(t *testing.T, maxBytes int64) (*FileCache, *time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache", "news.json"), ttl, maxBytes,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	c.now = func() time.Time { return now }
	return c, &now
}

func sampleSnapshot() domain.Snapshot {
	kavling := domain.Outlet{Name: "LPM Kavling", Link: "https://kavling10.com", Platform: domain.PlatformWordPress}
	mercusuar := domain.Outlet{Name: "LPM Mercusuar", Link: "https://mercusuar.blogspot.com", Platform: domain.PlatformBlogspot}
	return domain.Snapshot{
		Posts: []domain.Post{
			{
				Title:   "Diskusi Publik",
				Link:    "https://kavling10.com/diskusi",
				Date:    time.Date(2025, 2, 20, 8, 30, 0, 0, time.UTC),
				Image:   "https://kavling10.com/img.jpg",
				Excerpt: "Ringkasan […]",
				Outlet:  "LPM Kavling",
				City:    "Malang",
			},
		},
		Outcomes: map[string]domain.FetchOutcome{
			"LPM Kavling":   {Outlet: kavling, Count: 1, Status: domain.StatusSuccess},
			"LPM Mercusuar": {Outlet: mercusuar, Status: domain.StatusError, Error: "JSONP request timeout"},
		},
	}
}

func TestFileCache_RoundTrip(t *testing.T) {
	c, now := newTestCache(t, 0)
	snap := sampleSnapshot()

	require.NoError(t, c.Save(snap))
	entry, ok := c.Load()

	require.True(t, ok)
	assert.True(t, entry.SavedAt.Equal(*now))
	if diff := cmp.Diff(snap, entry.Snapshot); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestFileCache_ExpiresAfterTTL(t *testing.T) {
	c, now := newTestCache(t, 0)
	require.NoError(t, c.Save(sampleSnapshot()))

	*now = now.Add(ttl)
	_, ok := c.Load()
	require.True(t, ok, "entry exactly at TTL is still fresh")

	*now = now.Add(time.Millisecond)
	_, ok = c.Load()
	assert.False(t, ok)
	_, err := os.Stat(c.path)
	assert.True(t, os.IsNotExist(err), "expired entry must be removed")
}

func TestFileCache_CorruptEntryIsCleared(t *testing.T) {
	c, _ := newTestCache(t, 0)
	require.NoError(t, os.WriteFile(c.path, []byte("{not json"), 0o644))

	_, ok := c.Load()

	assert.False(t, ok)
	_, err := os.Stat(c.path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileCache_MissingTimestampIsCorrupt(t *testing.T) {
	c, _ := newTestCache(t, 0)
	require.NoError(t, os.WriteFile(c.path, []byte(`{"posts":[],"stats":[]}`), 0o644))

	_, ok := c.Load()

	assert.False(t, ok)
}

func TestFileCache_QuotaExceededClearsSlot(t *testing.T) {
	c, _ := newTestCache(t, 64)
	require.NoError(t, os.WriteFile(c.path, []byte(`{"timestamp":1,"posts":[],"stats":[]}`), 0o644))

	err := c.Save(sampleSnapshot())

	require.ErrorIs(t, err, ErrQuotaExceeded)
	_, statErr := os.Stat(c.path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileCache_StatsPersistedAsPairs(t *testing.T) {
	c, _ := newTestCache(t, 0)
	require.NoError(t, c.Save(sampleSnapshot()))

	data, err := os.ReadFile(c.path)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"stats":[["LPM Kavling",{`)
	assert.Contains(t, string(data), `"timestamp":1740830400000`)
	assert.Contains(t, string(data), `"date":"2025-02-20T08:30:00Z"`)
}

func TestFileCache_Clear(t *testing.T) {
	c, _ := newTestCache(t, 0)
	require.NoError(t, c.Save(sampleSnapshot()))

	c.Clear()
	c.Clear()

	_, ok := c.Load()
	assert.False(t, ok)
}
