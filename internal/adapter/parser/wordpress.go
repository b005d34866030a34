package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusnews/internal/domain"
)

// ErrMalformedPayload возвращается, когда верхний уровень ответа имеет не тот тип.
// Вызывающая сторона трактует его как ноль записей, а не как сбой издания.
var ErrMalformedPayload = errors.New("malformed payload")

type wpRendered struct {
	Rendered looseString `json:"rendered"`
}

// UnmarshalJSON принимает как {"rendered": "..."}, так и голую строку.
func (r *wpRendered) UnmarshalJSON(b []byte) error {
	var obj struct {
		Rendered looseString `json:"rendered"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		r.Rendered = obj.Rendered
		return nil
	}
	var s looseString
	_ = json.Unmarshal(b, &s)
	r.Rendered = s
	return nil
}

type wpMedia struct {
	SourceURL looseString `json:"source_url"`
}

type wpEmbedded struct {
	FeaturedMedia []wpMedia `json:"wp:featuredmedia"`
}

type wpPost struct {
	Title                   *wpRendered `json:"title"`
	Link                    looseString `json:"link"`
	Date                    looseString `json:"date"`
	DateGMT                 looseString `json:"date_gmt"`
	Content                 *wpRendered `json:"content"`
	Excerpt                 *wpRendered `json:"excerpt"`
	JetpackFeaturedMediaURL looseString `json:"jetpack_featured_media_url"`
	FeaturedMediaURL        looseString `json:"featured_media_url"`
	Embedded                *wpEmbedded `json:"_embedded"`
}

func rendered(r *wpRendered) string {
	if r == nil {
		return ""
	}
	return r.Rendered.String()
}

var wpImageProbes = []probe[wpPost]{
	func(p wpPost) string {
		if p.Embedded == nil || len(p.Embedded.FeaturedMedia) == 0 {
			return ""
		}
		return p.Embedded.FeaturedMedia[0].SourceURL.String()
	},
	func(p wpPost) string { return p.JetpackFeaturedMediaURL.String() },
	func(p wpPost) string { return p.FeaturedMediaURL.String() },
	func(p wpPost) string { return ExtractImage(rendered(p.Content)) },
	func(p wpPost) string { return ExtractImage(rendered(p.Excerpt)) },
}

var wpDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseWordPress разбирает ответ WordPress REST API (и нового, и старого вида).
// Записи, которые не удалось декодировать или у которых нет разбираемой даты, пропускаются
// и попадают в отчет.
func ParseWordPress(payload []byte, o domain.Outlet) ([]domain.Post, Report, error) {
	var report Report
	var top json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, report, fmt.Errorf("failed to decode JSON: %w", err)
	}
	top = bytes.TrimSpace(top)
	if len(top) == 0 || top[0] != '[' {
		return []domain.Post{}, report, fmt.Errorf("wordpress: expected array of posts: %w", ErrMalformedPayload)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(top, &entries); err != nil {
		return nil, report, fmt.Errorf("failed to decode JSON: %w", err)
	}
	posts := make([]domain.Post, 0, len(entries))
	for i, raw := range entries {
		var entry wpPost
		if err := json.Unmarshal(raw, &entry); err != nil {
			report.skip(i, "", err.Error())
			continue
		}
		title := wpTitle(entry)
		// date хранит местное время сайта без зоны, date_gmt - то же время в UTC.
		date, err := parseDate(wpDateLayouts, entry.DateGMT.String(), entry.Date.String())
		if err != nil {
			report.skip(i, title, err.Error())
			continue
		}
		posts = append(posts, newPost(o, post{
			title:   title,
			link:    entry.Link.String(),
			date:    date,
			image:   firstOf(entry, wpImageProbes...),
			excerpt: wpExcerpt(entry),
		}))
	}
	return posts, report, nil
}

func wpTitle(p wpPost) string {
	if t := StripHTML(rendered(p.Title)); t != "" {
		return t
	}
	return FallbackTitle
}

func wpExcerpt(p wpPost) string {
	text := StripHTML(rendered(p.Excerpt))
	text = strings.ReplaceAll(text, "…", EllipsisMarker)
	return Truncate(text, ExcerptLimit)
}

// parseDate пробует значения по порядку; значения без часового пояса считаются UTC.
func parseDate(layouts []string, values ...string) (time.Time, error) {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date in any known format: %q", strings.Join(values, " | "))
}
