// Package frontmatter parses the leading `---` key/value block of a content file.
//
// The parser is deliberately forgiving: a document without a block, or with
// malformed lines, still yields a complete Document with fallback values.
package frontmatter

import (
	"regexp"
	"strings"
	"time"
)

// Fallback values used when a recognized key is missing or empty.
const (
	DefaultTitle   = "Untitled"
	DefaultSummary = ""
)

// ISOLayout matches the millisecond ISO-8601 form used for the publishedAt fallback.
const ISOLayout = "2006-01-02T15:04:05.000Z"

var blockRegex = regexp.MustCompile(`(?s)---\s*(.*?)\s*---`)

// Metadata holds the recognized frontmatter keys.
type Metadata struct {
	Title       string `json:"title"`
	PublishedAt string `json:"publishedAt"`
	Summary     string `json:"summary"`
	Image       string `json:"image,omitempty"` // empty when absent
}

// HasImage reports whether the post declares its own preview image.
func (m Metadata) HasImage() bool {
	return m.Image != ""
}

// Document is the result of parsing a content file.
type Document struct {
	Metadata Metadata
	// Fields holds every key found in the block, recognized or not.
	Fields  map[string]string
	Content string
	// Found is false when the input had no delimited block.
	Found bool
}

// Parse parses src using the current time for the publishedAt fallback.
func Parse(src string) Document {
	return ParseAt(src, time.Now())
}

// ParseAt parses src, using now for the publishedAt fallback.
func ParseAt(src string, now time.Time) Document {
	loc := blockRegex.FindStringSubmatchIndex(src)
	if loc == nil {
		return Document{
			Metadata: withDefaults(nil, now),
			Fields:   map[string]string{},
			Content:  src,
		}
	}

	block := src[loc[2]:loc[3]]
	fields := parseFields(block)
	content := src[:loc[0]] + src[loc[1]:]

	return Document{
		Metadata: withDefaults(fields, now),
		Fields:   fields,
		Content:  strings.TrimSpace(content),
		Found:    true,
	}
}

func parseFields(block string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, ": ")
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(strings.Join(parts[1:], ": "))
		fields[key] = Unquote(value)
	}
	return fields
}

// Unquote strips exactly one matching pair of surrounding straight single or
// double quotes. Anything else is returned unchanged.
func Unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	first, last := v[0], v[len(v)-1]
	if first == last && (first == '"' || first == '\'') {
		return v[1 : len(v)-1]
	}
	return v
}

func withDefaults(fields map[string]string, now time.Time) Metadata {
	m := Metadata{
		Title:       fields["title"],
		PublishedAt: fields["publishedAt"],
		Summary:     fields["summary"],
		Image:       fields["image"],
	}
	if m.Title == "" {
		m.Title = DefaultTitle
	}
	if m.PublishedAt == "" {
		m.PublishedAt = now.UTC().Format(ISOLayout)
	}
	if m.Summary == "" {
		m.Summary = DefaultSummary
	}
	return m
}
