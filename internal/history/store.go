package history

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
)

const (
	delimiter = "|"
	numFields = 4 // Fingerprint|Successes|Failures|LastTestedUnix
)

// Store holds the durable per-fingerprint reliability counters. Records
// are created on first probe and incremented forever after; nothing here
// deletes them.
type Store struct {
	path string
	log  *slog.Logger

	mu      sync.Mutex
	records map[string]*model.HistoryRecord
	now     func() time.Time
}

// Open loads the store from path. A missing file starts an empty store; an
// unreadable existing file is fatal to the pipeline.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		path:    path,
		log:     log,
		records: make(map[string]*model.HistoryRecord),
		now:     time.Now,
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("history_store_empty", "path", path)
			return s, nil
		}
		return nil, fmt.Errorf("open history store: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := parseRecord(line)
		if err != nil {
			log.Warn("history_row_skipped", "line", lineNum, "error", err)
			continue
		}
		s.records[rec.Fingerprint] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history store: %w", err)
	}

	log.Info("history_store_loaded", "path", path, "records", len(s.records))
	return s, nil
}

// Get returns a copy of the record for fp.
func (s *Store) Get(fp string) (model.HistoryRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[fp]
	if !ok {
		return model.HistoryRecord{}, false
	}
	return *rec, true
}

// Increment bumps the success or failure counter for fp, creating the
// record on first sight. Updates are serialized; the counters only ever
// grow.
func (s *Store) Increment(fp string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[fp]
	if !ok {
		rec = &model.HistoryRecord{Fingerprint: fp}
		s.records[fp] = rec
	}
	if success {
		rec.Successes++
	} else {
		rec.Failures++
	}
	rec.LastTestedAt = s.now()
}

// Save persists all records, sorted by fingerprint for stable diffs.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]*model.HistoryRecord, 0, len(s.records))
	for _, r := range s.records {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Fingerprint < recs[j].Fingerprint
	})

	var sb strings.Builder
	for _, r := range recs {
		sb.WriteString(formatRecord(r))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(s.path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("save history store: %w", err)
	}
	s.log.Info("history_store_saved", "path", s.path, "records", len(recs))
	return nil
}

// Len is the number of tracked fingerprints.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func formatRecord(r *model.HistoryRecord) string {
	return strings.Join([]string{
		r.Fingerprint,
		strconv.Itoa(r.Successes),
		strconv.Itoa(r.Failures),
		strconv.FormatInt(r.LastTestedAt.Unix(), 10),
	}, delimiter)
}

func parseRecord(line string) (*model.HistoryRecord, error) {
	fields := strings.Split(line, delimiter)
	if len(fields) != numFields {
		return nil, fmt.Errorf("expected %d fields, got %d", numFields, len(fields))
	}
	successes, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("invalid successes: %w", err)
	}
	failures, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("invalid failures: %w", err)
	}
	lastUnix, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid last_tested: %w", err)
	}
	rec := &model.HistoryRecord{
		Fingerprint: fields[0],
		Successes:   successes,
		Failures:    failures,
	}
	if lastUnix > 0 {
		rec.LastTestedAt = time.Unix(lastUnix, 0)
	}
	return rec, nil
}
