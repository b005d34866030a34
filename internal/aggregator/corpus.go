package aggregator

import (
	"sync"

	"campusnews/internal/domain"
)

// Corpus накапливает записи и результаты загрузки за один прогон.
// Записи только добавляются, результаты по изданию перезаписываются.
type Corpus struct {
	mu        sync.Mutex
	posts     []domain.Post
	outcomes  map[string]domain.FetchOutcome
	completed int
}

func NewCorpus() *Corpus {
	return &Corpus{
		outcomes: make(map[string]domain.FetchOutcome),
	}
}

// Add добавляет записи издания, сохраняет его результат и возвращает число завершенных изданий.
func (c *Corpus) Add(posts []domain.Post, outcome domain.FetchOutcome) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = append(c.posts, posts...)
	c.outcomes[outcome.Outlet.Name] = outcome
	c.completed++
	return c.completed
}

// Snapshot возвращает копию текущего состояния.
func (c *Corpus) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Snapshot{Posts: c.posts, Outcomes: c.outcomes}.Clone()
}

func (c *Corpus) Completed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}
