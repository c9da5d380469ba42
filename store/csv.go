package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/config"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/models"
)

// header is the fixed, versioned column order. Historical rows stay
// parseable because the schema only ever grows by trailing columns:
// "status" was appended after the original five.
var header = []string{"timestamp", "date", "rate", "raw_date", "scrape_time", "status"}

// CSVStore appends PriceRecords to the on-disk dataset. Rows are only ever
// added at the end; prior rows are never rewritten, reordered, or read back
// (the only inspection is a size check to decide whether the header is
// needed).
type CSVStore struct {
	cfg    config.StoreConfig
	logger zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewCSVStore builds a store from config.
func NewCSVStore(cfg config.StoreConfig, logger zerolog.Logger) *CSVStore {
	return &CSVStore{
		cfg:    cfg,
		logger: logger.With().Str("component", "store").Logger(),
		now:    time.Now,
	}
}

// ShouldPersist applies the dataset policy: OK rows always, failed
// extraction/validation rows only when auditing is enabled, and fetch
// failures never (no page was seen, there is nothing to record).
func (s *CSVStore) ShouldPersist(status models.Status) bool {
	switch status {
	case models.StatusOK:
		return true
	case models.StatusExtractionFailed, models.StatusValidationFailed:
		return s.cfg.AuditFailedRows
	default:
		return false
	}
}

// Path returns the dataset file for the given record, expanding the daily
// suffix when configured (smm_silver_prices_20250724.csv).
func (s *CSVStore) Path(rec models.PriceRecord) string {
	if !s.cfg.DailyFiles {
		return s.cfg.CSVPath
	}
	ext := filepath.Ext(s.cfg.CSVPath)
	base := strings.TrimSuffix(s.cfg.CSVPath, ext)
	return base + "_" + rec.ScrapeTime.Format("20060102") + ext
}

// Append durably appends exactly one row for the record, writing the header
// first when the file is new or empty. The header decision and the write
// happen under a cross-process lock, and the payload (header + row, or just
// the row) goes out as a single write on an O_APPEND handle so a crash can
// never leave a torn row and two overlapping runs can never interleave.
func (s *CSVStore) Append(rec models.PriceRecord) error {
	path := s.Path(rec)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &models.PersistenceError{Path: path, Err: err}
		}
	}

	unlock, err := s.acquireLock(path)
	if err != nil {
		return &models.PersistenceError{Path: path, Err: err}
	}
	defer unlock()

	needHeader := true
	if info, statErr := os.Stat(path); statErr == nil && info.Size() > 0 {
		needHeader = false
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if needHeader {
		if err := w.Write(header); err != nil {
			return &models.PersistenceError{Path: path, Err: err}
		}
	}
	if err := w.Write(row(rec)); err != nil {
		return &models.PersistenceError{Path: path, Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &models.PersistenceError{Path: path, Err: err}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &models.PersistenceError{Path: path, Err: err}
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return &models.PersistenceError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &models.PersistenceError{Path: path, Err: err}
	}

	s.logger.Info().Str("path", path).Str("status", string(rec.Status)).Msg("row appended")
	return nil
}

func row(rec models.PriceRecord) []string {
	rate := ""
	if rec.Status != models.StatusExtractionFailed {
		rate = rec.Rate.String()
	}
	return []string{
		rec.ScrapeTime.Format("2006-01-02 15:04:05"),
		rec.DateString(),
		rate,
		rec.SourceDate,
		rec.ScrapeTime.Format("15:04:05"),
		string(rec.Status),
	}
}

// staleLockAge is how old a leftover lock file must be before a new run
// assumes its owner crashed and takes the lock over.
const staleLockAge = time.Minute

// acquireLock takes an exclusive sidecar lock (<path>.lock) so overlapping
// scheduled and manual runs serialize their appends. O_CREATE|O_EXCL makes
// creation atomic on every platform the scraper runs on.
func (s *CSVStore) acquireLock(path string) (func(), error) {
	lockPath := path + ".lock"
	deadline := s.now().Add(s.lockTimeout())

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() {
				if rmErr := os.Remove(lockPath); rmErr != nil {
					s.logger.Warn().Err(rmErr).Str("lock", lockPath).Msg("failed to remove lock file")
				}
			}, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}

		if info, statErr := os.Stat(lockPath); statErr == nil {
			if s.now().Sub(info.ModTime()) > staleLockAge {
				s.logger.Warn().Str("lock", lockPath).Msg("removing stale lock file")
				_ = os.Remove(lockPath)
				continue
			}
		}

		if s.now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for append lock %s", lockPath)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (s *CSVStore) lockTimeout() time.Duration {
	if s.cfg.LockTimeout > 0 {
		return s.cfg.LockTimeout
	}
	return 10 * time.Second
}
