// Package content loads blog posts from a directory of frontmatter files.
//
// Nothing is cached: every call re-reads the provider, so edits to the
// content directory show up on the next request.
package content

import (
	"errors"
	"net/url"

	"github.com/eringen/folio/frontmatter"
)

var (
	// ErrDirectoryNotFound is returned when the content directory does not exist.
	ErrDirectoryNotFound = errors.New("content directory not found")
	// ErrPostNotFound is returned when no post has the requested slug.
	ErrPostNotFound = errors.New("post not found")
)

// Post is a parsed content file.
type Post struct {
	Slug     string
	Metadata frontmatter.Metadata
	Content  string
}

// Link returns the site-relative path of the post. The slug is a file name
// and may contain spaces or '?', so it is path-escaped.
func (p Post) Link() string {
	return "/blog/" + url.PathEscape(p.Slug)
}

// Store turns provider entries into posts.
type Store struct {
	provider Provider
}

// NewStore creates a Store reading from p.
func NewStore(p Provider) *Store {
	return &Store{provider: p}
}

// NewDirStore creates a Store over the .mdx files in dir.
func NewDirStore(dir string) *Store {
	return NewStore(Dir(dir))
}

// ListPosts parses every content file. Order follows the provider and is not
// guaranteed; use SortedPosts for listings.
func (s *Store) ListPosts() ([]Post, error) {
	entries, err := s.provider.ListEntries()
	if err != nil {
		return nil, err
	}
	posts := make([]Post, 0, len(entries))
	for _, e := range entries {
		doc := frontmatter.Parse(string(e.Data))
		posts = append(posts, Post{
			Slug:     slugFor(e.Name),
			Metadata: doc.Metadata,
			Content:  doc.Content,
		})
	}
	return posts, nil
}

// SortedPosts returns all posts, newest first.
func (s *Store) SortedPosts() ([]Post, error) {
	posts, err := s.ListPosts()
	if err != nil {
		return nil, err
	}
	return SortByPublished(posts), nil
}

// GetPost returns the post with the given slug.
func (s *Store) GetPost(slug string) (Post, error) {
	posts, err := s.ListPosts()
	if err != nil {
		return Post{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrPostNotFound
}
