package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/dates"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	slugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

func (c *cli) store() *content.Store {
	p := content.Dir(c.cfg.ContentDir)
	p.Ext = c.cfg.ContentExt
	return content.NewStore(p)
}

func (c *cli) newPostsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "posts",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := c.store().SortedPosts()
			if err != nil {
				return err
			}
			return writePosts(cmd.OutOrStdout(), posts, dates.Default)
		},
	}
}

// writePosts prints one line per post: date with relative age, slug, title.
func writePosts(w io.Writer, posts []content.Post, f dates.Formatter) error {
	if len(posts) == 0 {
		_, err := fmt.Fprintln(w, "No posts yet.")
		return err
	}
	dateWidth, slugWidth := lipgloss.Width("DATE"), lipgloss.Width("SLUG")
	rows := make([][3]string, len(posts))
	for i, p := range posts {
		rows[i] = [3]string{f.Format(p.Metadata.PublishedAt, true), p.Slug, p.Metadata.Title}
		dateWidth = max(dateWidth, lipgloss.Width(rows[i][0]))
		slugWidth = max(slugWidth, lipgloss.Width(rows[i][1]))
	}

	line := func(date, slug, title string, ds, ss lipgloss.Style) string {
		return ds.Render(pad(date, dateWidth)) + "  " + ss.Render(pad(slug, slugWidth)) + "  " + title
	}
	if _, err := fmt.Fprintln(w, line("DATE", "SLUG", "TITLE", headerStyle, headerStyle)); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintln(w, line(r[0], r[1], r[2], dateStyle, slugStyle)); err != nil {
			return err
		}
	}
	return nil
}

// pad right-fills s to width terminal cells.
func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func (c *cli) newShowCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Render a post in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			post, err := c.store().GetPost(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return err
			}
			out, err := r.Render(postMarkdown(post))
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "word wrap width")
	return cmd
}

// postMarkdown prefixes the body with the title and formatted date.
func postMarkdown(post content.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", post.Metadata.Title)
	fmt.Fprintf(&b, "*%s*\n\n", dates.Format(post.Metadata.PublishedAt, false))
	b.WriteString(post.Content)
	b.WriteString("\n")
	return b.String()
}
