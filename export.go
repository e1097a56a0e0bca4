package folio

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/folio/content"
)

// exportTarget maps a route to the file it is written to.
type exportTarget struct {
	route string
	file  string
}

func exportTargets(posts []content.Post) []exportTarget {
	targets := []exportTarget{
		{"/", "index.html"},
		{"/blog", "blog/index.html"},
		{"/rss", "rss.xml"},
		{"/feed.xml", "feed.xml"},
		{"/sitemap.xml", "sitemap.xml"},
		{"/robots.txt", "robots.txt"},
	}
	for _, p := range posts {
		targets = append(targets, exportTarget{p.Link(), filepath.Join("blog", p.Slug, "index.html")})
	}
	return targets
}

// Export renders every page of the site into dir: the home page, blog index,
// each post, the feeds, sitemap and robots.txt, plus one OG image per post
// under og/<slug>.png. The static and embedded asset directories are copied
// alongside.
func (a *App) Export(ctx context.Context, dir string) error {
	if err := a.Setup(); err != nil {
		return err
	}
	posts, err := a.Posts.SortedPosts()
	if err != nil {
		return fmt.Errorf("folio: export: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, t := range exportTargets(posts) {
		g.Go(func() error {
			return a.exportRoute(ctx, dir, t)
		})
	}
	for _, p := range posts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := a.og.PNG(p.Metadata.Title)
			if err != nil {
				return fmt.Errorf("folio: export og %s: %w", p.Slug, err)
			}
			return writeFile(filepath.Join(dir, "og", p.Slug+".png"), data)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if _, err := os.Stat(a.staticDir); err == nil {
		if err := copyFS(filepath.Join(dir, "public"), os.DirFS(a.staticDir)); err != nil {
			return fmt.Errorf("folio: export static: %w", err)
		}
	}
	assets, err := fs.Sub(EmbeddedAssets, "embedded")
	if err != nil {
		return err
	}
	if err := copyFS(filepath.Join(dir, "static"), assets); err != nil {
		return fmt.Errorf("folio: export assets: %w", err)
	}

	a.Logger.Info("site exported", zap.String("dir", dir), zap.Int("posts", len(posts)))
	return nil
}

// exportRoute serves route through the full middleware stack and writes the
// response body.
func (a *App) exportRoute(ctx context.Context, dir string, t exportTarget) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := httptest.NewRequest(http.MethodGet, t.route, nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		return fmt.Errorf("folio: export %s: status %d", t.route, rec.Code)
	}
	return writeFile(filepath.Join(dir, t.file), rec.Body.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// copyFS copies every regular file of src into dir, overwriting existing
// files.
func copyFS(dir string, src fs.FS) error {
	return fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		in, err := src.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}
