package domain

import (
	"sort"
	"time"
)

// Post представляет нормализованную запись издания.
type Post struct {
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	Date       time.Time `json:"date"`
	Image      string    `json:"image,omitempty"`
	Excerpt    string    `json:"excerpt"`
	Outlet     string    `json:"outlet"`
	Province   string    `json:"province"`
	City       string    `json:"city"`
	University string    `json:"university"`
}

// Location возвращает строку "город, провинция" для отображения.
func (p Post) Location() string {
	switch {
	case p.City == "":
		return p.Province
	case p.Province == "":
		return p.City
	}
	return p.City + ", " + p.Province
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// FetchOutcome фиксирует результат загрузки одного издания за прогон.
// Skipped считает записи, отброшенные при разборе (например, с неразбираемой датой).
type FetchOutcome struct {
	Outlet  Outlet `json:"outlet"`
	Count   int    `json:"count"`
	Skipped int    `json:"skipped,omitempty"`
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Snapshot - неизменяемый срез корпуса: все записи и результаты по изданиям.
type Snapshot struct {
	Posts    []Post
	Outcomes map[string]FetchOutcome
}

// Empty сообщает, что в срезе нет ни одной записи.
func (s Snapshot) Empty() bool { return len(s.Posts) == 0 }

// Clone возвращает глубокую копию среза.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Posts:    make([]Post, len(s.Posts)),
		Outcomes: make(map[string]FetchOutcome, len(s.Outcomes)),
	}
	copy(out.Posts, s.Posts)
	for k, v := range s.Outcomes {
		out.Outcomes[k] = v
	}
	return out
}

// SortByDate сортирует записи по дате от новых к старым.
// При равных датах порядок определяется ссылкой, чтобы результат не зависел от порядка загрузки.
func SortByDate(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].Link < posts[j].Link
	})
}
