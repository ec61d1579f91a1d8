package watcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// defaultIgnoredDirs are skipped regardless of any configured pattern;
// walking into them is never useful for re-atomization and VCS/package
// manager directories can be enormous.
var defaultIgnoredDirs = []string{".git", ".cadi", "node_modules", "vendor", ".hg", ".svn"}

// ignoreSet is a minimal glob-pattern matcher for filtering watch
// events before they reach the debouncer. It intentionally does not
// implement full .gitignore semantics (negation, double-star ranges,
// directory-relative scoping) — cadi watches a single project tree for
// re-atomization, not a VCS-aware file index, so the common cases
// (extension globs, directory names, anchored paths) are enough.
type ignoreSet struct {
	patterns []string
}

func newIgnoreSet(patterns ...string) *ignoreSet {
	return &ignoreSet{patterns: append([]string(nil), patterns...)}
}

func (s *ignoreSet) addPattern(p string) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "#") {
		return
	}
	s.patterns = append(s.patterns, p)
}

// addFromFile reads newline-separated glob patterns from path, same
// shape as a .gitignore file. Missing files are not an error.
func (s *ignoreSet) addFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		s.addPattern(scanner.Text())
	}
	return scanner.Err()
}

// match reports whether relPath matches any configured pattern or
// contains a built-in ignored directory component. A trailing "/" on a
// pattern is dropped before matching and isDir is not consulted, so
// such a pattern matches files and directories alike.
func (s *ignoreSet) match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	for _, part := range strings.Split(relPath, "/") {
		for _, dir := range defaultIgnoredDirs {
			if part == dir {
				return true
			}
		}
	}

	base := filepath.Base(relPath)
	for _, pattern := range s.patterns {
		pattern = strings.TrimSuffix(pattern, "/")
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, relPath); ok {
			return true
		}
		if strings.HasPrefix(relPath, pattern+"/") {
			return true
		}
	}
	return false
}
