package remote

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// StoreDir is where local copies live, relative to the project root.
const StoreDir = ".lintcascade/remote"

// Store keeps content-addressed local copies of remote configurations.
type Store struct {
	fs      afero.Fs
	rootDir string

	// mu serializes .gitignore updates.
	mu sync.Mutex
}

// NewStore returns a store under rootDir/StoreDir.
func NewStore(fs afero.Fs, rootDir string) *Store {
	return &Store{fs: fs, rootDir: rootDir}
}

// Key derives the storage key for a URL.
func (s *Store) Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Get returns the stored copy of url, if any.
func (s *Store) Get(url string) ([]byte, bool) {
	data, err := afero.ReadFile(s.fs, s.path(url))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores data as the current copy of url.
func (s *Store) Put(url string, data []byte) error {
	path := s.path(url)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := s.ensureGitignore(); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	return nil
}

// path uses a 2-char prefix subdirectory to avoid huge flat directories.
func (s *Store) path(url string) string {
	key := s.Key(url)
	return filepath.Join(s.rootDir, StoreDir, key[:2], key+".yml")
}

// ensureGitignore adds .lintcascade/ to the root .gitignore once.
func (s *Store) ensureGitignore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gitignorePath := filepath.Join(s.rootDir, ".gitignore")
	entry := strings.SplitN(StoreDir, "/", 2)[0] + "/"

	data, err := afero.ReadFile(s.fs, gitignorePath)
	if err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimRight(line, "\r") == entry {
				return nil
			}
		}
	}

	f, err := s.fs.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		entry = "\n" + entry
	}
	if _, err := f.WriteString(entry + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
