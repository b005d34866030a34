package usecase

import (
	"sort"
	"strings"

	"campusnews/internal/domain"
)

// Filter - предикаты просмотра. Пустое поле не ограничивает выборку.
type Filter struct {
	Province   string `json:"province,omitempty"`
	City       string `json:"city,omitempty"`
	University string `json:"university,omitempty"`
	Outlet     string `json:"outlet,omitempty"`
}

func (f Filter) Match(p domain.Post) bool {
	switch {
	case f.Province != "" && p.Province != f.Province:
		return false
	case f.City != "" && p.City != f.City:
		return false
	case f.University != "" && p.University != f.University:
		return false
	case f.Outlet != "" && p.Outlet != f.Outlet:
		return false
	}
	return true
}

// Page - порция отфильтрованной ленты для курсора "показать еще".
type Page struct {
	Posts      []domain.Post `json:"posts"`
	Total      int           `json:"total"`
	Offset     int           `json:"offset"`
	NextOffset int           `json:"next_offset"`
	HasMore    bool          `json:"has_more"`
}

// Page возвращает limit записей, начиная с offset, из отфильтрованной ленты,
// отсортированной от новых к старым. limit <= 0 означает размер страницы по умолчанию.
func (uc *NewsFeedUseCase) Page(f Filter, offset, limit int) Page {
	if limit <= 0 {
		limit = uc.opts.PageSize
	}
	offset = max(offset, 0)
	uc.mu.RLock()
	var matched []domain.Post
	for _, p := range uc.visible.Posts {
		if f.Match(p) {
			matched = append(matched, p)
		}
	}
	uc.mu.RUnlock()

	start := min(offset, len(matched))
	end := start + min(limit, len(matched)-start)
	posts := make([]domain.Post, end-start)
	copy(posts, matched[start:end])
	return Page{
		Posts:      posts,
		Total:      len(matched),
		Offset:     start,
		NextOffset: end,
		HasMore:    end < len(matched),
	}
}

// Highlights возвращает n свежих записей обязательных изданий.
func (uc *NewsFeedUseCase) Highlights(n int) []domain.Post {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	out := []domain.Post{}
	for _, p := range uc.visible.Posts {
		if len(out) >= n {
			break
		}
		if _, ok := uc.highlight[p.Outlet]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Latest возвращает n самых свежих записей для бегущей строки.
func (uc *NewsFeedUseCase) Latest(n int) []domain.Post {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	n = max(0, min(n, len(uc.visible.Posts)))
	out := make([]domain.Post, n)
	copy(out, uc.visible.Posts[:n])
	return out
}

// OutletStat - строка статистики по изданию.
type OutletStat struct {
	Outlet     string        `json:"outlet"`
	University string        `json:"university"`
	Platform   string        `json:"platform"`
	Count      int           `json:"count"`
	Skipped    int           `json:"skipped,omitempty"`
	Status     domain.Status `json:"status"`
	Error      string        `json:"error,omitempty"`
}

// Stats возвращает статистику по изданиям: сначала успешные по убыванию числа записей,
// затем ошибочные по имени.
func (uc *NewsFeedUseCase) Stats() []OutletStat {
	uc.mu.RLock()
	stats := make([]OutletStat, 0, len(uc.visible.Outcomes))
	for name, oc := range uc.visible.Outcomes {
		stats = append(stats, OutletStat{
			Outlet:     name,
			University: oc.Outlet.University,
			Platform:   string(oc.Outlet.Platform),
			Count:      oc.Count,
			Skipped:    oc.Skipped,
			Status:     oc.Status,
			Error:      oc.Error,
		})
	}
	uc.mu.RUnlock()

	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		aOK, bOK := a.Status != domain.StatusError, b.Status != domain.StatusError
		if aOK != bOK {
			return aOK
		}
		if aOK && a.Count != b.Count {
			return a.Count > b.Count
		}
		return strings.ToLower(a.Outlet) < strings.ToLower(b.Outlet)
	})
	return stats
}

// FilterOptions - различающиеся значения для выпадающих фильтров.
type FilterOptions struct {
	Provinces    []string `json:"provinces"`
	Cities       []string `json:"cities"`
	Universities []string `json:"universities"`
	Outlets      []string `json:"outlets"`
}

func (uc *NewsFeedUseCase) FilterOptions() FilterOptions {
	provinces := make(map[string]struct{})
	cities := make(map[string]struct{})
	universities := make(map[string]struct{})
	outlets := make(map[string]struct{})
	uc.mu.RLock()
	for _, p := range uc.visible.Posts {
		provinces[p.Province] = struct{}{}
		cities[p.City] = struct{}{}
		universities[p.University] = struct{}{}
		outlets[p.Outlet] = struct{}{}
	}
	uc.mu.RUnlock()
	return FilterOptions{
		Provinces:    sortedKeys(provinces),
		Cities:       sortedKeys(cities),
		Universities: sortedKeys(universities),
		Outlets:      sortedKeys(outlets),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
