package config

import (
	"path/filepath"
	"strings"
)

// Lintable reports whether path passes the configuration's included and
// excluded filters. Patterns are relative to RootDir, may use "**", and a
// pattern naming a directory covers everything beneath it. Paths outside
// RootDir are only lintable when no included list is set.
func (c *Config) Lintable(path string) bool {
	rel, inside := c.relative(path)
	if !inside {
		return len(c.Included) == 0
	}

	if len(c.Included) > 0 && !matchAny(c.Included, rel) {
		return false
	}
	return !matchAny(c.Excluded, rel)
}

func (c *Config) relative(path string) (string, bool) {
	if !filepath.IsAbs(path) || c.RootDir == "" {
		return filepath.ToSlash(filepath.Clean(path)), true
	}
	rel, err := filepath.Rel(c.RootDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if matchPath(normalizePattern(pattern), rel) {
			return true
		}
	}
	return false
}

func normalizePattern(pattern string) string {
	pattern = filepath.ToSlash(pattern)
	pattern = strings.TrimPrefix(pattern, "./")
	return strings.TrimSuffix(pattern, "/")
}

// matchPath matches rel or any of its parent directories.
func matchPath(pattern, rel string) bool {
	if pattern == "" || pattern == "." {
		return true
	}
	for p := rel; p != "." && p != ""; p = pathDir(p) {
		if MatchGlob(pattern, p) {
			return true
		}
	}
	return false
}

func pathDir(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

// MatchGlob extends filepath.Match with "**", which matches zero or more
// path segments. Pattern and path use "/" separators.
func MatchGlob(pattern, path string) bool {
	if !strings.Contains(pattern, "**") {
		matched, _ := filepath.Match(pattern, path)
		return matched
	}

	idx := strings.Index(pattern, "**")
	prefix := strings.TrimRight(pattern[:idx], "/")
	suffix := strings.TrimLeft(pattern[idx+2:], "/")

	if prefix != "" {
		if path != prefix && !strings.HasPrefix(path, prefix+"/") {
			if !strings.ContainsAny(prefix, "*?[") {
				return false
			}
			// Wildcards before "**": match them segment by segment.
			n := strings.Count(prefix, "/") + 1
			parts := strings.Split(path, "/")
			if len(parts) < n {
				return false
			}
			if ok, _ := filepath.Match(prefix, strings.Join(parts[:n], "/")); !ok {
				return false
			}
			path = strings.Join(parts[n:], "/")
		} else {
			path = strings.TrimLeft(strings.TrimPrefix(path, prefix), "/")
		}
	}

	if suffix == "" {
		return true
	}

	parts := strings.Split(path, "/")
	for i := 0; i <= len(parts); i++ {
		if MatchGlob(suffix, strings.Join(parts[i:], "/")) {
			return true
		}
	}
	return false
}
