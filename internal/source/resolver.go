// Package source locates and loads the feed document.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrSourceNotFound is returned when no candidate location exists.
var ErrSourceNotFound = errors.New("feed source not found")

// DefaultPaths are searched, relative to the base directory, when neither an
// explicit location nor FEED_PATH is given.
var DefaultPaths = []string{
	"feed.xml",
	"data/feed.xml",
	"seed/feed.xml",
	"import/feed.xml",
}

// NotFoundError lists every location that was checked.
type NotFoundError struct {
	Checked []string
}

func (e *NotFoundError) Error() string {
	if len(e.Checked) == 0 {
		return ErrSourceNotFound.Error() + ": no candidate locations"
	}
	return fmt.Sprintf("%s; checked: %s", ErrSourceNotFound, strings.Join(e.Checked, ", "))
}

func (e *NotFoundError) Unwrap() error {
	return ErrSourceNotFound
}

// Location is a resolved feed location, either a local path or a URL.
type Location struct {
	Path   string
	Remote bool
}

func (l Location) String() string {
	return l.Path
}

// IsRemote reports whether path is an http(s) URL.
func IsRemote(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Resolver picks the feed location from an explicit argument, the
// environment override, then the default search paths.
type Resolver struct {
	BaseDir      string
	DefaultPaths []string

	stat func(string) (fs.FileInfo, error)
}

// NewResolver returns a resolver searching DefaultPaths under baseDir.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{
		BaseDir:      baseDir,
		DefaultPaths: DefaultPaths,
		stat:         os.Stat,
	}
}

// Resolve returns the first existing candidate. URLs are accepted without
// being checked. A *NotFoundError is returned when nothing exists.
func (r *Resolver) Resolve(explicit, fromEnv string) (Location, error) {
	var candidates []string
	for _, c := range []string{explicit, fromEnv} {
		if c = strings.TrimSpace(c); c != "" {
			candidates = append(candidates, c)
		}
	}
	for _, p := range r.DefaultPaths {
		if !filepath.IsAbs(p) && r.BaseDir != "" {
			p = filepath.Join(r.BaseDir, p)
		}
		candidates = append(candidates, p)
	}

	stat := r.stat
	if stat == nil {
		stat = os.Stat
	}

	var checked []string
	for _, c := range candidates {
		if IsRemote(c) {
			return Location{Path: c, Remote: true}, nil
		}
		path := expandHome(c)
		checked = append(checked, path)
		info, err := stat(path)
		if err == nil && !info.IsDir() {
			return Location{Path: path}, nil
		}
	}
	return Location{}, &NotFoundError{Checked: checked}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
