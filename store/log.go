package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// WrittenLog is an append-only list of game IDs whose rows have reached a
// finalized Parquet file, one ID per line. A restarted self-play run with
// the same run ID reads it to skip games it already recorded. A torn final
// line is ignored on load.
type WrittenLog struct {
	mu      sync.Mutex
	file    *os.File
	written map[string]struct{}
}

func OpenWrittenLog(path string) (*WrittenLog, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}
	written := make(map[string]struct{})
	if f, err := os.Open(path); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if id := strings.TrimSpace(sc.Text()); id != "" {
				written[id] = struct{}{}
			}
		}
		_ = f.Close()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &WrittenLog{file: f, written: written}, nil
}

func (l *WrittenLog) Has(gameID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.written[gameID]
	return ok
}

func (l *WrittenLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.written)
}

// AddMany records ids with a single fsync. Known and empty IDs are skipped.
func (l *WrittenLog) AddMany(ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("log file is closed")
	}
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := l.written[id]; ok {
			continue
		}
		if _, err := l.file.WriteString(id + "\n"); err != nil {
			return fmt.Errorf("append log: %w", err)
		}
		l.written[id] = struct{}{}
		added++
	}
	if added == 0 {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	return nil
}

func (l *WrittenLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
