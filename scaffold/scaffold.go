// Package scaffold creates new folio sites from embedded template files.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
	"unicode"
)

// Templates contains all scaffold template files.
// Files use Go text/template syntax when they have a .tmpl suffix.
//
//go:embed all:templates
var Templates embed.FS

const root = "templates"

// ErrExists is returned when the target directory is already present.
var ErrExists = errors.New("scaffold: directory already exists")

// Data holds the template variables passed to every scaffold template.
type Data struct {
	ProjectName string
	SiteName    string
	Today       string
}

// NewData derives template data from a project name.
func NewData(name string, now time.Time) Data {
	return Data{
		ProjectName: name,
		SiteName:    Title(name),
		Today:       now.Format("2006-01-02"),
	}
}

// Generate writes a new site into dir, reporting each created file to out.
func Generate(dir string, data Data, out io.Writer) error {
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, dir)
	}

	return fs.WalkDir(Templates, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, filepath.FromSlash(path))
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if filepath.Base(target) == "gitignore" {
			target = filepath.Join(filepath.Dir(target), ".gitignore")
		}

		src, err := Templates.ReadFile(path)
		if err != nil {
			return fmt.Errorf("scaffold: read %s: %w", path, err)
		}
		if strings.HasSuffix(target, ".tmpl") {
			target = strings.TrimSuffix(target, ".tmpl")
			if src, err = execute(path, src, data); err != nil {
				return err
			}
		}
		if err := os.WriteFile(target, src, 0o644); err != nil {
			return fmt.Errorf("scaffold: write %s: %w", target, err)
		}
		fmt.Fprintf(out, "  created %s\n", target)
		return nil
	})
}

func execute(name string, src []byte, data Data) ([]byte, error) {
	tmpl, err := template.New(filepath.Base(name)).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("scaffold: parse %s: %w", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return nil, fmt.Errorf("scaffold: execute %s: %w", name, err)
	}
	return []byte(b.String()), nil
}

// Title converts "my-blog" or "my_blog" into "My Blog".
func Title(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
