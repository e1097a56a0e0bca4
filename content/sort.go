package content

import (
	"slices"
	"time"

	"github.com/eringen/folio/dates"
)

// SortByPublished returns a copy of posts ordered by publish date, newest
// first. Posts with unparseable dates sort last. The relative order of posts
// sharing a timestamp is unspecified.
func SortByPublished(posts []Post) []Post {
	type keyed struct {
		post Post
		at   time.Time
	}
	ks := make([]keyed, len(posts))
	for i, p := range posts {
		at, _ := dates.Parse(p.Metadata.PublishedAt, time.UTC)
		ks[i] = keyed{post: p, at: at}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		return b.at.Compare(a.at)
	})
	out := make([]Post, len(ks))
	for i, k := range ks {
		out[i] = k.post
	}
	return out
}
