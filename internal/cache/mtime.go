package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// HasCache reports whether file exists and was modified within ttl.
func HasCache(file string, ttl time.Duration) bool {
	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.ModTime().After(time.Now().Add(-ttl))
}

// PruneFile deletes file if it was last modified more than ttl ago.
func PruneFile(file string, ttl time.Duration) error {
	info, err := os.Stat(file)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() || !info.ModTime().Before(time.Now().Add(-ttl)) {
		return nil
	}
	return os.Remove(file)
}

// PruneDir applies PruneFile to every file directly inside dir.
func PruneDir(dir string, ttl time.Duration) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("prune dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		err := PruneFile(filepath.Join(dir, entry.Name()), ttl)
		if err != nil {
			return fmt.Errorf("prune dir: %w", err)
		}
	}
	return nil
}
