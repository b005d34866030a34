package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"campusnews/internal/aggregator"
	"campusnews/internal/domain"
)

// Источник видимого корпуса.
const (
	OriginNone    = ""
	OriginCache   = "cache"
	OriginNetwork = "network"
)

// Progress - сигнал загрузки для слоя представления.
type Progress struct {
	RunID      string    `json:"run_id,omitempty"`
	State      string    `json:"state"`
	Completed  int       `json:"completed"`
	Total      int       `json:"total"`
	Origin     string    `json:"origin"`
	Revealed   bool      `json:"revealed"`
	Refreshing bool      `json:"refreshing"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type NewsFeedOptions struct {
	// Highlights - обязательные издания, по ID или имени.
	Highlights []string
	// PageSize - размер страницы по умолчанию.
	PageSize int
}

// NewsFeedUseCase владеет видимым корпусом сессии: решает между теплым и холодным стартом,
// выполняет обновление по запросу и отдает данные для просмотра.
type NewsFeedUseCase struct {
	registry OutletRegistry
	agg      Aggregator
	cache    SnapshotCache
	archive  ArchiveStorage
	opts     NewsFeedOptions
	log      *slog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	generation uint64
	visible    domain.Snapshot
	settled    domain.Snapshot
	progress   Progress
	highlight  map[string]struct{}
}

// NewNewsFeedUseCase создает use case. archive может быть nil.
func NewNewsFeedUseCase(
	registry OutletRegistry,
	agg Aggregator,
	cache SnapshotCache,
	archive ArchiveStorage,
	opts NewsFeedOptions,
	log *slog.Logger,
) *NewsFeedUseCase {
	if opts.PageSize <= 0 {
		opts.PageSize = 12
	}
	return &NewsFeedUseCase{
		registry: registry,
		agg:      agg,
		cache:    cache,
		archive:  archive,
		opts:     opts,
		log:      log.With(slog.String("component", "newsfeed")),
		now:      time.Now,
		visible:  domain.Snapshot{Posts: []domain.Post{}, Outcomes: map[string]domain.FetchOutcome{}},
		progress: Progress{State: aggregator.StateIdle.String()},
	}
}

// Start открывает сессию. Непустой кэш считается готовым корпусом, и прогон не запускается.
// Иначе выполняется холодная агрегация. Фоновое обновление здесь не планируется.
func (uc *NewsFeedUseCase) Start(ctx context.Context) error {
	log := uc.log.With(slog.String("op", "Start"))
	if entry, ok := uc.cache.Load(); ok && !entry.Snapshot.Empty() {
		snap := entry.Snapshot.Clone()
		domain.SortByDate(snap.Posts)
		outlets := make([]domain.Outlet, 0, len(snap.Outcomes))
		for _, oc := range snap.Outcomes {
			outlets = append(outlets, oc.Outlet)
		}
		uc.mu.Lock()
		uc.generation++
		uc.visible = snap
		uc.settled = snap
		uc.highlight = uc.resolveHighlights(outlets)
		uc.progress = Progress{
			State:     aggregator.StateComplete.String(),
			Completed: len(snap.Outcomes),
			Total:     len(snap.Outcomes),
			Origin:    OriginCache,
			Revealed:  true,
			UpdatedAt: entry.SavedAt,
		}
		uc.mu.Unlock()
		log.Info("Warm start from cache",
			slog.Int("count", len(snap.Posts)),
			slog.Duration("age", entry.Age(uc.now()).Round(time.Second)),
		)
		return nil
	}
	log.Info("Cold start, aggregating all outlets")
	gen, previous := uc.beginRun(false)
	return uc.aggregate(ctx, gen, previous)
}

// Refresh очищает кэш и видимое состояние и запускает новый прогон.
// Если прогон не дал ни одной записи, возвращается предыдущий корпус.
func (uc *NewsFeedUseCase) Refresh(ctx context.Context) error {
	uc.log.Info("Refresh requested", slog.String("op", "Refresh"))
	gen, previous := uc.beginRun(true)
	uc.cache.Clear()
	return uc.aggregate(ctx, gen, previous)
}

// beginRun открывает новое поколение и очищает видимое состояние.
// Возвращает последний завершенный корпус: он переживает и прерванные обновления.
func (uc *NewsFeedUseCase) beginRun(refresh bool) (uint64, domain.Snapshot) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.generation++
	previous := uc.settled
	uc.visible = domain.Snapshot{Posts: []domain.Post{}, Outcomes: map[string]domain.FetchOutcome{}}
	uc.progress = Progress{
		State:      aggregator.StateFetching.String(),
		Origin:     OriginNetwork,
		Refreshing: refresh,
		UpdatedAt:  uc.now(),
	}
	return uc.generation, previous
}

func (uc *NewsFeedUseCase) aggregate(ctx context.Context, gen uint64, previous domain.Snapshot) error {
	log := uc.log.With(slog.Uint64("generation", gen))
	outlets, err := uc.registry.Load(ctx)
	if err != nil {
		uc.abort(gen, previous, err)
		return fmt.Errorf("aggregation not started: %w", err)
	}
	uc.mu.Lock()
	if uc.generation == gen {
		uc.highlight = uc.resolveHighlights(outlets)
		uc.progress.Total = len(outlets)
	}
	uc.mu.Unlock()

	snap, err := uc.agg.Run(ctx, outlets, &runObserver{uc: uc, gen: gen})
	if err != nil {
		uc.abort(gen, previous, err)
		return fmt.Errorf("aggregation failed: %w", err)
	}

	uc.mu.Lock()
	if uc.generation != gen {
		uc.mu.Unlock()
		log.Info("Stale aggregation run discarded", slog.Int("count", len(snap.Posts)))
		return nil
	}
	restored := snap.Empty() && !previous.Empty()
	if restored {
		uc.visible = previous
	} else {
		domain.SortByDate(snap.Posts)
		uc.visible = snap
		uc.settled = snap
	}
	uc.progress.State = aggregator.StateComplete.String()
	uc.progress.Completed = len(outlets)
	uc.progress.Total = len(outlets)
	uc.progress.Revealed = true
	uc.progress.Refreshing = false
	uc.progress.UpdatedAt = uc.now()
	uc.mu.Unlock()

	if restored {
		log.Warn("Aggregation returned no posts, previous corpus restored",
			slog.Int("count", len(previous.Posts)),
		)
		return nil
	}
	if err := uc.cache.Save(snap); err != nil {
		log.Warn("Failed to save cache", slog.String("error", err.Error()))
	}
	if uc.archive != nil && !snap.Empty() {
		if _, err := uc.archive.SaveSnapshot(ctx, snap); err != nil {
			log.Error("Failed to archive snapshot", slog.String("error", err.Error()))
		}
	}
	return nil
}

// abort возвращает предыдущий корпус после неудачного старта прогона.
func (uc *NewsFeedUseCase) abort(gen uint64, previous domain.Snapshot, cause error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.generation != gen {
		return
	}
	if !previous.Empty() {
		uc.visible = previous
	}
	uc.progress.State = aggregator.StateIdle.String()
	uc.progress.Refreshing = false
	uc.progress.Error = cause.Error()
	uc.progress.UpdatedAt = uc.now()
}

// resolveHighlights переводит ключи обязательных изданий в имена, которыми помечены записи.
func (uc *NewsFeedUseCase) resolveHighlights(outlets []domain.Outlet) map[string]struct{} {
	wanted := make(map[string]struct{}, len(uc.opts.Highlights))
	for _, h := range uc.opts.Highlights {
		wanted[h] = struct{}{}
	}
	names := make(map[string]struct{})
	for _, o := range outlets {
		_, byKey := wanted[o.Key()]
		_, byName := wanted[o.Name]
		if byKey || byName {
			names[o.Name] = struct{}{}
		}
	}
	return names
}

// Progress возвращает текущий сигнал загрузки.
func (uc *NewsFeedUseCase) Progress() Progress {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.progress
}

// Snapshot возвращает копию видимого корпуса.
func (uc *NewsFeedUseCase) Snapshot() domain.Snapshot {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.visible.Clone()
}

// runObserver переносит события прогона в видимое состояние, пока поколение актуально.
type runObserver struct {
	uc  *NewsFeedUseCase
	gen uint64
}

func (o *runObserver) Progress(runID string, completed, total int) {
	uc := o.uc
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.generation != o.gen {
		return
	}
	uc.progress.RunID = runID
	uc.progress.Completed = completed
	uc.progress.Total = total
	uc.progress.UpdatedAt = uc.now()
}

// Reveal публикует частичный корпус. Финальное раскрытие применяет aggregate,
// чтобы пустой итог не успел затереть предыдущий корпус.
func (o *runObserver) Reveal(r aggregator.Reveal) {
	if r.Final {
		return
	}
	snap := r.Snapshot.Clone()
	domain.SortByDate(snap.Posts)
	uc := o.uc
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.generation != o.gen {
		return
	}
	uc.visible = snap
	uc.progress.State = r.State.String()
	uc.progress.Revealed = true
	uc.progress.UpdatedAt = uc.now()
}
