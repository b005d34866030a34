package parser

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"campusnews/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOutlet = domain.Outlet{
	Province:   "Jawa Timur",
	City:       "Malang",
	University: "Universitas Brawijaya",
	Name:       "LPM Kavling",
	Link:       "https://kavling.test/",
	Platform:   domain.PlatformWordPress,
}

const wordpressPayload = `[
  {
    "title": {"rendered": "Hello &amp; <em>World</em>"},
    "link": "https://a.test/hello",
    "date": "2025-05-01T10:00:00",
    "excerpt": {"rendered": "<p>Short excerpt&#8230;</p>\n"},
    "content": {"rendered": "<p><img src=\"https://a.test/c.jpg\"></p>"},
    "_embedded": {"wp:featuredmedia": [{"source_url": "https://a.test/featured.jpg"}]}
  },
  {
    "title": {"rendered": ""},
    "link": "https://a.test/2",
    "date": "2025-05-02T08:30:00+07:00",
    "jetpack_featured_media_url": false,
    "featured_media_url": "https://a.test/fm.png",
    "excerpt": {"rendered": "<p>x</p>"}
  },
  {
    "title": {"rendered": "No image field"},
    "date": "2025-05-03T00:00:00",
    "content": {"rendered": "<img src=\"a.gif\"><img src=\"b.png\">"}
  }
]`

func TestParseWordPress_Success(t *testing.T) {
	posts, report, err := ParseWordPress([]byte(wordpressPayload), testOutlet)

	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Empty(t, report.Skipped)

	assert.Equal(t, "Hello & World", posts[0].Title)
	assert.Equal(t, "https://a.test/hello", posts[0].Link)
	assert.True(t, posts[0].Date.Equal(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "https://a.test/featured.jpg", posts[0].Image)
	assert.Equal(t, "Short excerpt"+EllipsisMarker, posts[0].Excerpt)
	assert.Equal(t, "LPM Kavling", posts[0].Outlet)
	assert.Equal(t, "Malang", posts[0].City)
	assert.Equal(t, "Jawa Timur", posts[0].Province)
	assert.Equal(t, "Universitas Brawijaya", posts[0].University)

	assert.Equal(t, FallbackTitle, posts[1].Title)
	assert.Equal(t, "https://a.test/fm.png", posts[1].Image)
	assert.True(t, posts[1].Date.Equal(time.Date(2025, 5, 2, 1, 30, 0, 0, time.UTC)))
	assert.Equal(t, "x", posts[1].Excerpt)

	assert.Equal(t, "", posts[2].Link)
	assert.Equal(t, "b.png", posts[2].Image)
	assert.Equal(t, "", posts[2].Excerpt)
}

func TestParseWordPress_ImageProbeOrder(t *testing.T) {
	payload := `[{"title":{"rendered":"t"},"date":"2025-01-01T00:00:00",
		"jetpack_featured_media_url":"https://a.test/jetpack.jpg",
		"featured_media_url":"https://a.test/generic.jpg",
		"content":{"rendered":"<img src=\"https://a.test/content.jpg\">"},
		"excerpt":{"rendered":"<img src=\"https://a.test/excerpt.jpg\">"}},
		{"title":{"rendered":"t"},"date":"2025-01-01T00:00:00",
		"excerpt":{"rendered":"<img src=\"https://a.test/excerpt.jpg\">"}},
		{"title":{"rendered":"t"},"date":"2025-01-01T00:00:00"}]`

	posts, _, err := ParseWordPress([]byte(payload), testOutlet)

	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "https://a.test/jetpack.jpg", posts[0].Image)
	assert.Equal(t, "https://a.test/excerpt.jpg", posts[1].Image)
	assert.Empty(t, posts[2].Image)
}

func TestParseWordPress_NotAnArray(t *testing.T) {
	posts, _, err := ParseWordPress([]byte(`{"code":"rest_no_route","message":"No route"}`), testOutlet)

	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Empty(t, posts)
}

func TestParseWordPress_InvalidJSON(t *testing.T) {
	posts, _, err := ParseWordPress([]byte(`<html>blocked</html>`), testOutlet)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedPayload)
	assert.Contains(t, err.Error(), "failed to decode JSON")
	assert.Nil(t, posts)
}

func TestParseWordPress_SkipsBrokenEntries(t *testing.T) {
	payload := `[
		{"title":{"rendered":"bad date"},"date":"yesterday"},
		42,
		{"title":{"rendered":"good"},"date":"2025-01-01T00:00:00"}
	]`

	posts, report, err := ParseWordPress([]byte(payload), testOutlet)

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "good", posts[0].Title)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, 0, report.Skipped[0].Index)
	assert.Equal(t, "bad date", report.Skipped[0].Title)
	assert.Equal(t, 1, report.Skipped[1].Index)
}

func TestParseWordPress_DateGMTOnly(t *testing.T) {
	payload := `[{"title":{"rendered":"t"},"date":"","date_gmt":"2025-03-04T05:06:07"}]`

	posts, _, err := ParseWordPress([]byte(payload), testOutlet)

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.True(t, posts[0].Date.Equal(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)))
}

func TestParseWordPress_DateGMTPreferred(t *testing.T) {
	payload := `[{"title":{"rendered":"t"},"date":"2025-03-04T12:00:00","date_gmt":"2025-03-04T05:00:00"}]`

	posts, _, err := ParseWordPress([]byte(payload), testOutlet)

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, time.Date(2025, 3, 4, 5, 0, 0, 0, time.UTC), posts[0].Date.UTC())
}

func TestParseWordPress_LocalDateWhenGMTUnusable(t *testing.T) {
	payload := `[{"title":{"rendered":"t"},"date":"2025-03-04T12:00:00","date_gmt":"0000-00-00T00:00:00"}]`

	posts, _, err := ParseWordPress([]byte(payload), testOutlet)

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC), posts[0].Date.UTC())
}

func TestParseWordPress_ExcerptBounded(t *testing.T) {
	long := strings.Repeat("kata panjang ", 60) + "&hellip;"
	payload := `[{"title":{"rendered":"t"},"date":"2025-01-01T00:00:00","excerpt":{"rendered":"<p>` + long + `</p>"}}]`

	posts, _, err := ParseWordPress([]byte(payload), testOutlet)

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.LessOrEqual(t, utf8.RuneCountInString(posts[0].Excerpt), ExcerptLimit)
	assert.True(t, strings.HasPrefix(posts[0].Excerpt, "kata panjang kata"))
}

func TestParseWordPress_Idempotent(t *testing.T) {
	first, _, err := ParseWordPress([]byte(wordpressPayload), testOutlet)
	require.NoError(t, err)
	second, _, err := ParseWordPress([]byte(wordpressPayload), testOutlet)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("re-extraction differs (-first +second):\n%s", diff)
	}
}
