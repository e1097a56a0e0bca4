package content

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eringen/folio/frontmatter"
)

func postsPublished(dates ...string) []Post {
	posts := make([]Post, len(dates))
	for i, d := range dates {
		posts[i] = Post{Slug: d, Metadata: frontmatter.Metadata{Title: d, PublishedAt: d}}
	}
	return posts
}

func publishedOrder(posts []Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Metadata.PublishedAt
	}
	return out
}

func TestSortByPublished(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "descending",
			in:   []string{"2024-01-01", "2025-06-01", "2023-12-31"},
			want: []string{"2025-06-01", "2024-01-01", "2023-12-31"},
		},
		{
			name: "mixed precision",
			in:   []string{"2025-01-01", "2025-01-01T12:00:00Z", "2024-12-31T23:59:59Z"},
			want: []string{"2025-01-01T12:00:00Z", "2025-01-01", "2024-12-31T23:59:59Z"},
		},
		{
			name: "invalid last",
			in:   []string{"whenever", "2020-05-05", "2021-05-05"},
			want: []string{"2021-05-05", "2020-05-05", "whenever"},
		},
		{
			name: "empty",
			in:   nil,
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := publishedOrder(SortByPublished(postsPublished(tt.in...)))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSortByPublishedDoesNotMutateInput(t *testing.T) {
	in := postsPublished("2024-01-01", "2025-06-01")
	_ = SortByPublished(in)
	if in[0].Metadata.PublishedAt != "2024-01-01" {
		t.Errorf("input reordered: %v", publishedOrder(in))
	}
}
