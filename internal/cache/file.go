package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"atomkit/internal/telemetry"
	"atomkit/lib/chars"
)

const sep = "__"

const (
	report_file_replace = "file.replace"
	report_file_prune   = "file.prune"
)

// FileStore keeps every entry in its own file named
// `{name}__{unix}__{md5(key)}.json`.
type FileStore struct {
	dir  string
	name string
	ttl  time.Duration
	now  func() time.Time
	tel  telemetry.API
}

func NewFileStore(dir, name string, ttl time.Duration, tel telemetry.API) (*FileStore, error) {
	if strings.Contains(name, sep) {
		return nil, fmt.Errorf("cache name '%s' must not contain '%s'", name, sep)
	}
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return nil, fmt.Errorf("file cache: %w", err)
	}
	return &FileStore{
		dir:  dir,
		name: name,
		ttl:  ttl,
		now:  time.Now,
		tel:  telemetry.NewScopedAPI("cache", tel),
	}, nil
}

type fileEntry struct {
	path    string
	created int64
	id      string
}

func (s *FileStore) entries() ([]fileEntry, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, s.name+sep+"*.json"))
	if err != nil {
		return nil, err
	}
	out := []fileEntry{}
	for _, path := range matches {
		parts := strings.Split(strings.TrimSuffix(filepath.Base(path), ".json"), sep)
		if len(parts) != 3 {
			continue
		}
		created, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, fileEntry{path: path, created: created, id: parts[2]})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].created > out[j].created
	})
	return out, nil
}

func (s *FileStore) expired(e fileEntry) bool {
	return s.now().Unix() > e.created+int64(s.ttl.Seconds())
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.ttl <= 0 {
		return nil, false, nil
	}
	entries, err := s.entries()
	if err != nil {
		return nil, false, fmt.Errorf("file cache get: %w", err)
	}
	id := chars.Hash2S(key)
	for _, e := range entries {
		if e.id != id || s.expired(e) {
			continue
		}
		data, err := os.ReadFile(e.path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("file cache get: %w", err)
		}
		return data, true, nil
	}
	return nil, false, nil
}

func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if s.ttl <= 0 {
		return nil
	}
	id := chars.Hash2S(key)
	entries, err := s.entries()
	if err != nil {
		return fmt.Errorf("file cache set: %w", err)
	}
	for _, e := range entries {
		if e.id != id {
			continue
		}
		// a stale entry left behind is shadowed by the newer one
		err := os.Remove(e.path)
		if err != nil && !os.IsNotExist(err) {
			s.tel.ReportWarning(report_file_replace, err, e.path)
		}
	}

	name := strings.Join([]string{s.name, strconv.FormatInt(s.now().Unix(), 10), id}, sep)
	err = os.WriteFile(filepath.Join(s.dir, name+".json"), value, 0644)
	if err != nil {
		return fmt.Errorf("file cache set: %w", err)
	}
	return nil
}

func (s *FileStore) Prune(ctx context.Context) error {
	entries, err := s.entries()
	if err != nil {
		return fmt.Errorf("file cache prune: %w", err)
	}
	for _, e := range entries {
		if s.ttl > 0 && !s.expired(e) {
			continue
		}
		err := os.Remove(e.path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("file cache prune: %w", err)
		}
		s.tel.ReportDebug(report_file_prune, e.path)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
