package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// DefaultExt is the content file extension picked up by Dir.
const DefaultExt = ".mdx"

// Entry is one content file: its base name and raw bytes.
type Entry struct {
	Name string
	Data []byte
}

// Provider lists the raw content files backing a Store.
type Provider interface {
	ListEntries() ([]Entry, error)
}

// FSProvider reads content files from a single directory of an fs.FS.
// Subdirectories are not descended into.
type FSProvider struct {
	FS fs.FS
	// Root is the directory inside FS to list ("." for the FS root).
	Root string
	// Ext filters entries by extension, including the dot.
	Ext string
	// Label names the directory in errors; defaults to Root.
	Label string
}

// Dir returns a provider over the .mdx files of a directory on disk.
func Dir(dir string) *FSProvider {
	return &FSProvider{FS: os.DirFS(dir), Root: ".", Ext: DefaultExt, Label: dir}
}

// ListEntries implements Provider.
func (p *FSProvider) ListEntries() ([]Entry, error) {
	root := p.Root
	if root == "" {
		root = "."
	}
	ext := p.Ext
	if ext == "" {
		ext = DefaultExt
	}

	dirEntries, err := fs.ReadDir(p.FS, root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("content: %w: %s", ErrDirectoryNotFound, p.label())
		}
		return nil, fmt.Errorf("content: read dir %s: %w", p.label(), err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || path.Ext(de.Name()) != ext {
			continue
		}
		data, err := fs.ReadFile(p.FS, path.Join(root, de.Name()))
		if err != nil {
			return nil, fmt.Errorf("content: read %s: %w", de.Name(), err)
		}
		entries = append(entries, Entry{Name: de.Name(), Data: data})
	}
	return entries, nil
}

func (p *FSProvider) label() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Root
}

// slugFor derives the lookup key from a file name by dropping its extension.
func slugFor(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
