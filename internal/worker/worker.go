package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Session определяет интерфейс сессии агрегатора, которой управляет воркер.
type Session interface {
	Start(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Worker запускает сессию в фоне и выполняет обновления по запросу
// или по расписанию, если интервал задан.
type Worker struct {
	session  Session
	interval time.Duration
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	stopped  bool
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// New создает воркер. interval <= 0 отключает фоновое обновление.
func New(session Session, interval time.Duration, log *slog.Logger) *Worker {
	return &Worker{
		session:  session,
		interval: interval,
		log:      log.With(slog.String("component", "worker")),
	}
}

// Start запускает воркер в отдельной горутине.
// Инициализирует контекст с возможностью отмены и начинает сессию.
// Повторный запуск и запуск после Stop игнорируются.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx != nil || w.stopped {
		return
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.wg.Add(1)
	go w.run()
}

// Stop отменяет контекст и ждет завершения всех запущенных прогонов.
// После Stop новые обновления не принимаются.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.stopped = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	w.log.Info("Session worker started", slog.String("interval", w.interval.String()))
	start := time.Now()
	if err := w.session.Start(w.ctx); err != nil {
		w.log.Error("Session start failed", slog.Any("error", err))
	} else {
		w.log.Info("Session started", slog.Duration("duration", time.Since(start)))
	}
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-tick:
			w.Refresh()
		case <-w.ctx.Done():
			w.log.Info("Worker stopping")
			return
		}
	}
}

// Refresh запускает обновление в фоне и сразу возвращается.
// Более новое обновление вытесняет результаты предыдущего, не дожидаясь его.
func (w *Worker) Refresh() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil || w.stopped {
		return false
	}
	w.wg.Add(1)
	w.inFlight.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.inFlight.Add(-1)
		start := time.Now()
		if err := w.session.Refresh(w.ctx); err != nil {
			w.log.Error("Refresh failed", slog.Any("error", err))
			return
		}
		w.log.Info("Refresh completed", slog.Duration("duration", time.Since(start)))
	}()
	return true
}

// InFlight возвращает число выполняющихся обновлений.
func (w *Worker) InFlight() int { return int(w.inFlight.Load()) }

// GetInterval возвращает интервал фонового обновления.
func (w *Worker) GetInterval() time.Duration { return w.interval }
