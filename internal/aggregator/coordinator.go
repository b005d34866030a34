package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"campusnews/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State - стадия прогона агрегации.
type State int

const (
	StateIdle State = iota
	StateFetching
	StatePartiallyRevealed
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePartiallyRevealed:
		return "partially-revealed"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// OutletFetcher загружает одно издание. Реализация не должна возвращать ошибок:
// любой сбой отражается в FetchOutcome.
type OutletFetcher interface {
	FetchOutlet(ctx context.Context, o domain.Outlet) ([]domain.Post, domain.FetchOutcome)
}

// Reveal - порция данных, которую можно показать пользователю.
type Reveal struct {
	RunID     string
	State     State
	Snapshot  domain.Snapshot
	Completed int
	Total     int
	Final     bool
}

// Observer получает прогресс и раскрытия прогона.
// Вызовы последовательны в рамках одного прогона, поэтому обработчики должны быть быстрыми.
type Observer interface {
	Progress(runID string, completed, total int)
	Reveal(r Reveal)
}

// NopObserver игнорирует все события.
type NopObserver struct{}

func (NopObserver) Progress(string, int, int) {}
func (NopObserver) Reveal(Reveal)              {}

type Options struct {
	// Highlights - обязательные издания (ID или имя из реестра).
	Highlights []string
	// Threshold - доля завершенных изданий для первого раскрытия.
	Threshold float64
	// MaxConcurrency ограничивает число одновременных загрузок; 0 - без ограничения.
	MaxConcurrency int
}

// Coordinator запускает загрузку всех изданий параллельно и собирает корпус.
// Каждый вызов Run работает со свежим корпусом.
type Coordinator struct {
	fetcher OutletFetcher
	opts    Options
	log     *slog.Logger

	stateMu sync.RWMutex
	state   State
}

func NewCoordinator(fetcher OutletFetcher, opts Options, log *slog.Logger) *Coordinator {
	return &Coordinator{
		fetcher: fetcher,
		opts:    opts,
		log:     log,
		state:   StateIdle,
	}
}

// State возвращает стадию последнего прогона.
func (c *Coordinator) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// Run загружает все издания и возвращает итоговый срез корпуса.
// Observer получает ровно одно финальное раскрытие.
func (c *Coordinator) Run(ctx context.Context, outlets []domain.Outlet, obs Observer) (domain.Snapshot, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	runID := uuid.NewString()
	log := c.log.With(
		slog.String("component", "aggregator"),
		slog.String("run_id", runID),
	)
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("aggregation aborted before start: %w", err)
	}
	start := time.Now()
	total := len(outlets)
	corpus := NewCorpus()
	gate := newRevealGate(total, c.opts.Threshold, c.mustHave(outlets, log))
	log.Info("Aggregation run started",
		slog.Int("outlets", total),
		slog.Int("reveal_at", gate.need),
		slog.Int("must_have", len(gate.pending)),
	)

	var (
		mu    sync.Mutex
		state = StateFetching
	)
	c.setState(state)
	g := new(errgroup.Group)
	if c.opts.MaxConcurrency > 0 {
		g.SetLimit(c.opts.MaxConcurrency)
	}
	for _, o := range outlets {
		o := o
		g.Go(func() error {
			posts, outcome := c.fetcher.FetchOutlet(ctx, o)
			outcome.Outlet = o

			mu.Lock()
			defer mu.Unlock()
			completed := corpus.Add(posts, outcome)
			obs.Progress(runID, completed, total)
			if gate.complete(o.Name) && completed < total {
				if state == StateFetching {
					log.Info("Partial results revealed", slog.Int("completed", completed))
				}
				state = StatePartiallyRevealed
				c.setState(state)
				obs.Reveal(Reveal{
					RunID:     runID,
					State:     state,
					Snapshot:  corpus.Snapshot(),
					Completed: completed,
					Total:     total,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.setState(StateIdle)
		return domain.Snapshot{}, fmt.Errorf("aggregation run %s failed: %w", runID, err)
	}

	final := corpus.Snapshot()
	mu.Lock()
	state = StateComplete
	c.setState(state)
	obs.Reveal(Reveal{
		RunID:     runID,
		State:     state,
		Snapshot:  final,
		Completed: total,
		Total:     total,
		Final:     true,
	})
	mu.Unlock()

	failed := 0
	for _, oc := range final.Outcomes {
		if oc.Status == domain.StatusError {
			failed++
		}
	}
	log.Info("Aggregation run completed",
		slog.Int("posts", len(final.Posts)),
		slog.Int("successful", len(final.Outcomes)-failed),
		slog.Int("errors", failed),
		slog.Int("total", total),
		slog.Duration("duration", time.Since(start)),
	)
	return final, nil
}

// mustHave возвращает имена обязательных изданий, которые есть в реестре.
// Обязательное издание сопоставляется по ID или по имени; несопоставленные
// пропускаются, чтобы не блокировать раскрытие до конца прогона.
func (c *Coordinator) mustHave(outlets []domain.Outlet, log *slog.Logger) []string {
	if len(c.opts.Highlights) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(c.opts.Highlights))
	for _, h := range c.opts.Highlights {
		wanted[h] = false
	}
	var names []string
	for _, o := range outlets {
		for _, key := range []string{o.Key(), o.Name} {
			if _, ok := wanted[key]; ok {
				wanted[key] = true
				names = append(names, o.Name)
				break
			}
		}
	}
	for h, matched := range wanted {
		if !matched {
			log.Warn("Highlight outlet not found in registry", slog.String("highlight", h))
		}
	}
	return names
}
