package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusnews/internal/domain"
)

type bloggerText struct {
	T looseString `json:"$t"`
}

func (t *bloggerText) value() string {
	if t == nil {
		return ""
	}
	return t.T.String()
}

type bloggerLink struct {
	Rel  looseString `json:"rel"`
	Href looseString `json:"href"`
}

type bloggerThumbnail struct {
	URL looseString `json:"url"`
}

type bloggerEntry struct {
	Title     *bloggerText      `json:"title"`
	Links     []bloggerLink     `json:"link"`
	Published *bloggerText      `json:"published"`
	Content   *bloggerText      `json:"content"`
	Summary   *bloggerText      `json:"summary"`
	Thumbnail *bloggerThumbnail `json:"media$thumbnail"`
}

type bloggerEnvelope struct {
	Feed *struct {
		Entry []json.RawMessage `json:"entry"`
	} `json:"feed"`
}

var bloggerImageProbes = []probe[bloggerEntry]{
	func(e bloggerEntry) string {
		if e.Thumbnail == nil {
			return ""
		}
		return upgradeThumbnail(e.Thumbnail.URL.String())
	},
	func(e bloggerEntry) string { return ExtractImage(e.Content.value()) },
	func(e bloggerEntry) string { return ExtractImage(e.Summary.value()) },
}

var bloggerExcerptProbes = []probe[bloggerEntry]{
	func(e bloggerEntry) string { return StripHTML(e.Summary.value()) },
	func(e bloggerEntry) string { return StripHTML(e.Content.value()) },
}

// upgradeThumbnail заменяет токен превью 72px на полноразмерный.
func upgradeThumbnail(u string) string {
	return strings.Replace(u, "s72-c", "s1600", 1)
}

// ParseBlogspot разбирает ленту Blogger в формате JSON.
// Отсутствие feed или feed.entry означает пустую ленту, а не ошибку.
func ParseBlogspot(payload []byte, o domain.Outlet) ([]domain.Post, Report, error) {
	var report Report
	var env bloggerEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return []domain.Post{}, report, fmt.Errorf("blogspot: expected feed envelope: %w", ErrMalformedPayload)
		}
		return nil, report, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if env.Feed == nil || env.Feed.Entry == nil {
		return []domain.Post{}, report, nil
	}
	posts := make([]domain.Post, 0, len(env.Feed.Entry))
	for i, raw := range env.Feed.Entry {
		var entry bloggerEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			report.skip(i, "", err.Error())
			continue
		}
		title := strings.TrimSpace(entry.Title.value())
		if title == "" {
			title = FallbackTitle
		}
		date, err := parseDate([]string{time.RFC3339}, entry.Published.value())
		if err != nil {
			report.skip(i, title, err.Error())
			continue
		}
		posts = append(posts, newPost(o, post{
			title:   title,
			link:    alternateLink(entry.Links),
			date:    date,
			image:   firstOf(entry, bloggerImageProbes...),
			excerpt: Truncate(firstOf(entry, bloggerExcerptProbes...), ExcerptLimit),
		}))
	}
	return posts, report, nil
}

func alternateLink(links []bloggerLink) string {
	for _, l := range links {
		if l.Rel == "alternate" {
			return l.Href.String()
		}
	}
	return ""
}
