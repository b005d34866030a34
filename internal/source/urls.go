package source

import (
	"fmt"
	"time"

	"campusnews/internal/domain"
)

// isoLayout повторяет формат Date.toISOString: UTC с миллисекундами.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Cutoff возвращает момент на months календарных месяцев раньше now в формате ISO-8601.
func Cutoff(now time.Time, months int) string {
	return now.UTC().AddDate(0, -months, 0).Format(isoLayout)
}

// URLBuilder строит адреса API изданий.
type URLBuilder struct {
	MaxResults int
	After      string
}

func (b URLBuilder) WordPressURL(o domain.Outlet) string {
	return fmt.Sprintf("%s/wp-json/wp/v2/posts?per_page=%d&page=1&after=%s&_embed",
		o.BaseURL(), b.MaxResults, b.After)
}

func (b URLBuilder) LegacyWordPressURL(o domain.Outlet) string {
	return fmt.Sprintf("%s?rest_route=/wp/v2/posts&per_page=%d&page=1&after=%s&_embed",
		o.BaseURL(), b.MaxResults, b.After)
}

func (b URLBuilder) BlogspotJSONURL(o domain.Outlet) string {
	return fmt.Sprintf("%s/feeds/posts/default?alt=json&max-results=%d&published-min=%s",
		o.BaseURL(), b.MaxResults, b.After)
}

func (b URLBuilder) BlogspotScriptURL(o domain.Outlet, callback string) string {
	return fmt.Sprintf("%s/feeds/posts/default?alt=json-in-script&callback=%s&max-results=%d&published-min=%s",
		o.BaseURL(), callback, b.MaxResults, b.After)
}

// URL возвращает адрес первого запроса для издания в зависимости от платформы.
func (b URLBuilder) URL(o domain.Outlet) string {
	switch o.Platform {
	case domain.PlatformBlogspot:
		return b.BlogspotJSONURL(o)
	case domain.PlatformLegacyWordPress:
		return b.LegacyWordPressURL(o)
	default:
		return b.WordPressURL(o)
	}
}
