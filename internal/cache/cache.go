package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"campusnews/internal/domain"
)

var (
	// ErrQuotaExceeded возвращается, когда срез корпуса не помещается в слот кэша.
	ErrQuotaExceeded = errors.New("cache quota exceeded")
	// ErrCorrupt означает, что содержимое слота не удалось разобрать.
	ErrCorrupt = errors.New("cache entry is corrupt")
)

// Entry - восстановленное содержимое кэша.
type Entry struct {
	SavedAt  time.Time
	Snapshot domain.Snapshot
}

// Age возвращает возраст записи относительно now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.SavedAt)
}

// payload - формат файла кэша.
type payload struct {
	Timestamp int64         `json:"timestamp"`
	Posts     []domain.Post `json:"posts"`
	Stats     []statEntry   `json:"stats"`
}

// statEntry сериализуется как пара [имя издания, результат].
type statEntry struct {
	Name    string
	Outcome domain.FetchOutcome
}

func (s statEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Name, s.Outcome})
}

func (s *statEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("stat entry must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &s.Name); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &s.Outcome)
}

// FileCache хранит один срез корпуса в JSON-файле со сроком жизни.
type FileCache struct {
	mu       sync.Mutex
	path     string
	ttl      time.Duration
	maxBytes int64
	now      func() time.Time
	log      *slog.Logger
}

// NewFileCache создает кэш в файле path. maxBytes <= 0 снимает ограничение размера.
func NewFileCache(path string, ttl time.Duration, maxBytes int64, log *slog.Logger) (*FileCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create parent directories for cache file %s: %w", path, err)
	}
	return &FileCache{
		path:     path,
		ttl:      ttl,
		maxBytes: maxBytes,
		now:      time.Now,
		log:      log.With(slog.String("component", "cache")),
	}, nil
}

// Save сохраняет срез атомарно: запись во временный файл и переименование.
// При нехватке места слот очищается и возвращается ErrQuotaExceeded.
func (c *FileCache) Save(snap domain.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := payload{
		Timestamp: c.now().UnixMilli(),
		Posts:     snap.Posts,
		Stats:     make([]statEntry, 0, len(snap.Outcomes)),
	}
	if p.Posts == nil {
		p.Posts = []domain.Post{}
	}
	names := make([]string, 0, len(snap.Outcomes))
	for name := range snap.Outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.Stats = append(p.Stats, statEntry{Name: name, Outcome: snap.Outcomes[name]})
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		c.clearLocked()
		c.log.Warn("Cache entry exceeds quota, slot cleared",
			slog.Int("size", len(data)),
			slog.Int64("max_bytes", c.maxBytes),
		)
		return fmt.Errorf("%w: entry is %d bytes, limit %d", ErrQuotaExceeded, len(data), c.maxBytes)
	}
	if err := c.writeAtomic(data); err != nil {
		if errors.Is(err, syscall.ENOSPC) {
			c.clearLocked()
			c.log.Warn("No space left for cache entry, slot cleared", slog.String("error", err.Error()))
			return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("unable to write cache file %s: %w", c.path, err)
	}
	c.log.Info("Cache saved", slog.Int("count", len(p.Posts)))
	return nil
}

func (c *FileCache) writeAtomic(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Load возвращает сохраненный срез, если он есть и не старше TTL.
// Испорченная или просроченная запись удаляется.
func (c *FileCache) Load() (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Error("Failed to read cache file", slog.String("error", err.Error()))
		}
		return nil, false
	}
	entry, err := decode(data)
	if err != nil {
		c.log.Warn("Cache entry is corrupt, slot cleared", slog.String("error", err.Error()))
		c.clearLocked()
		return nil, false
	}
	age := entry.Age(c.now())
	if c.ttl > 0 && age > c.ttl {
		c.log.Info("Cache expired, slot cleared", slog.Duration("age", age.Round(time.Second)))
		c.clearLocked()
		return nil, false
	}
	c.log.Info("Cache loaded",
		slog.Int("count", len(entry.Snapshot.Posts)),
		slog.Duration("age", age.Round(time.Second)),
	)
	return entry, true
}

func decode(data []byte) (*Entry, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if p.Timestamp <= 0 {
		return nil, fmt.Errorf("%w: missing timestamp", ErrCorrupt)
	}
	snap := domain.Snapshot{
		Posts:    p.Posts,
		Outcomes: make(map[string]domain.FetchOutcome, len(p.Stats)),
	}
	if snap.Posts == nil {
		snap.Posts = []domain.Post{}
	}
	for _, s := range p.Stats {
		snap.Outcomes[s.Name] = s.Outcome
	}
	return &Entry{SavedAt: time.UnixMilli(p.Timestamp), Snapshot: snap}, nil
}

// Clear безусловно удаляет содержимое слота.
func (c *FileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *FileCache) clearLocked() {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Error("Failed to clear cache", slog.String("error", err.Error()))
		return
	}
	c.log.Debug("Cache cleared")
}
