package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"campusnews/internal/domain"
	"campusnews/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func browseFixture(t *testing.T) *NewsFeedUseCase {
	t.Helper()
	var posts []domain.Post
	posts = append(posts, postsOf(kavling, 4, now)...)
	posts = append(posts, postsOf(mercusuar, 3, now.Add(-30*time.Minute))...)
	posts = append(posts, postsOf(didaktika, 5, now.Add(-10*time.Minute))...)
	snap := snapshotOf(posts,
		success(kavling, 4),
		success(mercusuar, 3),
		success(didaktika, 5),
		failure(domain.Outlet{Name: "LPM Zeta"}, "HTTP 404"),
		failure(domain.Outlet{Name: "LPM Alpha"}, "request timeout"),
	)
	uc := newUseCase(&fakeAggregator{runs: []runFunc{returns(snap)}}, &memoryCache{}, nil)
	require.NoError(t, uc.Start(context.Background()))
	return uc
}

func TestPage_LoadMoreCursor(t *testing.T) {
	uc := browseFixture(t)

	first := uc.Page(Filter{}, 0, 0)
	require.Len(t, first.Posts, 5)
	assert.Equal(t, 12, first.Total)
	assert.True(t, first.HasMore)
	for i := 1; i < len(first.Posts); i++ {
		assert.False(t, first.Posts[i].Date.After(first.Posts[i-1].Date), "posts are date-descending")
	}

	last := uc.Page(Filter{}, 10, 5)
	assert.Len(t, last.Posts, 2)
	assert.Equal(t, 12, last.NextOffset)
	assert.False(t, last.HasMore)

	beyond := uc.Page(Filter{}, 50, 5)
	assert.Empty(t, beyond.Posts)
	assert.Equal(t, 12, beyond.Offset)
}

func TestPage_HugeLimit(t *testing.T) {
	uc := browseFixture(t)

	var page Page
	require.NotPanics(t, func() { page = uc.Page(Filter{}, 1, math.MaxInt) })
	assert.Len(t, page.Posts, 11)
	assert.Equal(t, 12, page.NextOffset)
	assert.False(t, page.HasMore)
}

func TestPage_Filters(t *testing.T) {
	uc := browseFixture(t)

	byCity := uc.Page(Filter{City: "Semarang"}, 0, 100)
	assert.Equal(t, 3, byCity.Total)
	for _, p := range byCity.Posts {
		assert.Equal(t, "LPM Mercusuar", p.Outlet)
	}

	combined := uc.Page(Filter{Province: "Jawa Timur", Outlet: "LPM Didaktika"}, 0, 100)
	assert.Zero(t, combined.Total)

	byUniversity := uc.Page(Filter{University: "UNJ"}, 0, 100)
	assert.Equal(t, 5, byUniversity.Total)
}

func TestHighlights_OnlyMustHaveOutlets(t *testing.T) {
	uc := browseFixture(t)

	posts := uc.Highlights(4)

	require.Len(t, posts, 4)
	for _, p := range posts {
		assert.Contains(t, []string{"LPM Kavling", "LPM Mercusuar"}, p.Outlet)
	}
	assert.Equal(t, "LPM Kavling #0", posts[0].Title)
}

func TestLatest(t *testing.T) {
	uc := browseFixture(t)

	latest := uc.Latest(3)
	require.Len(t, latest, 3)
	assert.Equal(t, "LPM Kavling #0", latest[0].Title)
	assert.Equal(t, "LPM Didaktika #0", latest[1].Title)

	assert.Len(t, uc.Latest(100), 12)
	assert.Empty(t, uc.Latest(-1))
}

func TestStats_Ordering(t *testing.T) {
	uc := browseFixture(t)

	stats := uc.Stats()

	var names []string
	for _, s := range stats {
		names = append(names, s.Outlet)
	}
	assert.Equal(t, []string{"LPM Didaktika", "LPM Kavling", "LPM Mercusuar", "LPM Alpha", "LPM Zeta"}, names)
	assert.Equal(t, 0, stats[4].Count)
	assert.Equal(t, "HTTP 404", stats[4].Error)
}

func TestFilterOptions(t *testing.T) {
	uc := browseFixture(t)

	opts := uc.FilterOptions()

	assert.Equal(t, []string{"DKI Jakarta", "Jawa Tengah", "Jawa Timur"}, opts.Provinces)
	assert.Equal(t, []string{"Jakarta", "Malang", "Semarang"}, opts.Cities)
	assert.Equal(t, []string{"LPM Didaktika", "LPM Kavling", "LPM Mercusuar"}, opts.Outlets)
}

func TestArchiveGetter_Disabled(t *testing.T) {
	getter := NewArchiveGetterUseCase(storage.NopArchive{})

	posts, err := getter.GetPosts(context.Background(), 10)

	assert.ErrorIs(t, err, storage.ErrArchiveDisabled)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}
