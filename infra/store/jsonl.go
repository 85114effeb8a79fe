package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// JSONLConfig configures the rotating JSONL store. Sizes are in megabytes,
// ages in days.
type JSONLConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// RotatingJSONLStore stores runs in a JSONL file with automatic rotation.
type RotatingJSONLStore struct {
	mu     sync.Mutex
	logger *lumberjack.Logger
	path   string
}

// NewRotatingJSONLStore creates the store, creating the parent directory
// when needed.
func NewRotatingJSONLStore(c JSONLConfig) (*RotatingJSONLStore, error) {
	if c.Path == "" {
		return nil, errors.New("jsonl store: empty path")
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if dir := filepath.Dir(c.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   c.Path,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   c.Compress,
	}
	return &RotatingJSONLStore{logger: lj, path: c.Path}, nil
}

const megabyte = 1024 * 1024

// Append writes the record as one line, rotating the file if needed. A
// record larger than MaxSizeMB is written whole: the limit is raised for
// that write so the file rotates on the next append instead.
func (s *RotatingJSONLStore) Append(_ context.Context, rec RunRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit := s.logger.MaxSize; len(b) > limit*megabyte {
		s.logger.MaxSize = len(b)/megabyte + 1
		defer func() { s.logger.MaxSize = limit }()
	}
	_, err = s.logger.Write(b)
	return err
}

// Query reads the active file and its uncompressed backups.
func (s *RotatingJSONLStore) Query(ctx context.Context, q RunQuery) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	var res []RunRecord
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := readJSONL(f, q)
		if err != nil {
			return nil, err
		}
		res = append(res, recs...)
	}
	return sortAndLimit(res, q.Limit), nil
}

// files lists the active file and the backups lumberjack names
// <name>-<timestamp><ext> next to it.
func (s *RotatingJSONLStore) files() ([]string, error) {
	ext := filepath.Ext(s.path)
	prefix := strings.TrimSuffix(s.path, ext)
	backups, err := filepath.Glob(prefix + "-*" + ext)
	if err != nil {
		return nil, err
	}
	out := backups
	if _, err := os.Stat(s.path); err == nil {
		out = append(out, s.path)
	}
	return out, nil
}

func readJSONL(path string, q RunQuery) ([]RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var res []RunRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for sc.Scan() {
		var r RunRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		if q.match(r) {
			res = append(res, r)
		}
	}
	return res, sc.Err()
}

// Close closes the underlying writer.
func (s *RotatingJSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger.Close()
}
