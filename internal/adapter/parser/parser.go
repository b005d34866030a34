package parser

import (
	"errors"
	"log/slog"
	"time"

	"campusnews/internal/domain"
)

// Skip описывает запись ленты, отброшенную при разборе.
type Skip struct {
	Index  int
	Title  string
	Reason string
}

// Report собирает сведения о пропущенных записях одного ответа.
type Report struct {
	Skipped []Skip
}

func (r *Report) skip(i int, title, reason string) {
	r.Skipped = append(r.Skipped, Skip{Index: i, Title: title, Reason: reason})
}

type post struct {
	title   string
	link    string
	date    time.Time
	image   string
	excerpt string
}

func newPost(o domain.Outlet, p post) domain.Post {
	return domain.Post{
		Title:      p.title,
		Link:       p.link,
		Date:       p.date,
		Image:      p.image,
		Excerpt:    p.excerpt,
		Outlet:     o.Name,
		Province:   o.Province,
		City:       o.City,
		University: o.University,
	}
}

type PostParser struct {
	log *slog.Logger
}

func NewPostParser(log *slog.Logger) *PostParser {
	return &PostParser{
		log: log,
	}
}

// Parse выбирает вариант разбора по платформе издания и логирует пропущенные записи.
// ErrMalformedPayload возвращается вместе с пустым срезом записей.
func (p *PostParser) Parse(platform domain.Platform, payload []byte, o domain.Outlet) ([]domain.Post, Report, error) {
	var (
		posts  []domain.Post
		report Report
		err    error
	)
	if platform == domain.PlatformBlogspot {
		posts, report, err = ParseBlogspot(payload, o)
	} else {
		posts, report, err = ParseWordPress(payload, o)
	}
	if err != nil && !errors.Is(err, ErrMalformedPayload) {
		p.log.Error(
			"Error decoding payload",
			slog.String("outlet", o.Name),
			slog.Any("error", err),
		)
		return nil, report, err
	}
	for _, s := range report.Skipped {
		p.log.Warn(
			"could not parse entry, skipping",
			slog.String("outlet", o.Name),
			slog.Int("index", s.Index),
			slog.String("item_title", s.Title),
			slog.String("error", s.Reason),
		)
	}
	return posts, report, err
}
