package source

import (
	"testing"
	"time"

	"campusnews/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCutoff_OneCalendarMonth(t *testing.T) {
	now := time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-15T08:30:00.000Z", Cutoff(now, 1))

	jakarta := time.FixedZone("WIB", 7*60*60)
	assert.Equal(t, "2025-12-31T17:00:00.000Z", Cutoff(time.Date(2026, 2, 1, 0, 0, 0, 0, jakarta), 1))
}

func TestURLBuilder(t *testing.T) {
	b := URLBuilder{MaxResults: 100, After: "2026-02-15T08:30:00.000Z"}
	o := domain.Outlet{Name: "LPM", Link: "https://lpm.test/"}

	assert.Equal(t,
		"https://lpm.test/wp-json/wp/v2/posts?per_page=100&page=1&after=2026-02-15T08:30:00.000Z&_embed",
		b.WordPressURL(o))
	assert.Equal(t,
		"https://lpm.test?rest_route=/wp/v2/posts&per_page=100&page=1&after=2026-02-15T08:30:00.000Z&_embed",
		b.LegacyWordPressURL(o))
	assert.Equal(t,
		"https://lpm.test/feeds/posts/default?alt=json&max-results=100&published-min=2026-02-15T08:30:00.000Z",
		b.BlogspotJSONURL(o))
	assert.Equal(t,
		"https://lpm.test/feeds/posts/default?alt=json-in-script&callback=cb_1&max-results=100&published-min=2026-02-15T08:30:00.000Z",
		b.BlogspotScriptURL(o, "cb_1"))

	o.Platform = domain.PlatformLegacyWordPress
	assert.Equal(t, b.LegacyWordPressURL(o), b.URL(o))
	o.Platform = domain.PlatformBlogspot
	assert.Equal(t, b.BlogspotJSONURL(o), b.URL(o))
	o.Platform = domain.PlatformWordPress
	assert.Equal(t, b.WordPressURL(o), b.URL(o))
}
