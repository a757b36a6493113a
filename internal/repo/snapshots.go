package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/classpulse/sociogram/internal/models"
	"github.com/classpulse/sociogram/internal/utils"
)

const (
	snapshotPrefix = "snapshot/"
	classPrefix    = "class/"
	trendsPrefix   = "trends/"

	// DefaultListLimit applies when a query does not set a limit.
	DefaultListLimit = 20
	// MaxListLimit caps a single history page.
	MaxListLimit = 200
)

// ErrNotFound is returned when a snapshot does not exist.
var ErrNotFound = fmt.Errorf("snapshot %w", utils.ErrNotFound)

// StoreConfig configures the Badger-backed snapshot store.
type StoreConfig struct {
	Path           string
	InMemory       bool
	SyncWrites     bool
	GCInterval     time.Duration
	GCDiscardRatio float64
	Logger         *slog.Logger
}

// SnapshotStore persists analysis results and mined trends in Badger. Keys:
//
//	snapshot/<analysisID>                          -> AnalysisResult JSON
//	class/<classID>/<inverted nanos>/<analysisID>  -> analysisID (newest first)
//	trends/<classID>                               -> []StudentTrend JSON
//
// Class IDs are path-escaped inside keys.
type SnapshotStore struct {
	db     *badger.DB
	logger *slog.Logger
	stopGC chan struct{}
	gcDone chan struct{}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenSnapshotStore opens (or creates) the store described by cfg.
func OpenSnapshotStore(cfg StoreConfig) (*SnapshotStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store path is required for persistent database")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	store := &SnapshotStore{db: db, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		store.stopGC = make(chan struct{})
		store.gcDone = make(chan struct{})
		go store.runGC(cfg.GCInterval, ratio)
	}
	return store, nil
}

// Save writes the snapshot and, when it has a class ID, its history index entry.
func (s *SnapshotStore) Save(ctx context.Context, result models.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result.AnalysisID == "" {
		return errors.New("snapshot requires an analysis id")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(snapshotKey(result.AnalysisID), payload); err != nil {
			return err
		}
		if result.ClassID == "" {
			return nil
		}
		return txn.Set(classIndexKey(result.ClassID, result.GeneratedAt, result.AnalysisID), []byte(result.AnalysisID))
	})
}

// Get loads a snapshot by analysis ID, returning ErrNotFound when absent.
func (s *SnapshotStore) Get(ctx context.Context, id string) (models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := ctx.Err(); err != nil {
		return result, err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, snapshotKey(id), &result)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.AnalysisResult{}, ErrNotFound
	}
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	return result, nil
}

// List returns a class's snapshots, newest first, bounded by the query limit.
func (s *SnapshotStore) List(ctx context.Context, query models.SnapshotQuery) ([]models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if query.ClassID == "" {
		return nil, errors.New("class id is required")
	}
	limit := NormaliseLimit(query.Limit)

	results := make([]models.AnalysisResult, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := classIndexPrefix(query.ClassID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(results) < limit; it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var result models.AnalysisResult
			if err := readJSON(txn, snapshotKey(string(id)), &result); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					s.logger.Warn("dangling class index entry", slog.String("analysis_id", string(id)))
					continue
				}
				return err
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots for %s: %w", query.ClassID, err)
	}
	return results, nil
}

// StoreTrends replaces the mined trends of a class. The key is an export for
// offline tooling reading the database; the service re-mines on every request
// and never reads it back.
func (s *SnapshotStore) StoreTrends(ctx context.Context, classID string, trends []models.StudentTrend) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(trends)
	if err != nil {
		return fmt.Errorf("encode trends: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(trendsPrefix+url.PathEscape(classID)), payload)
	})
}

// Close stops background GC and closes the database.
func (s *SnapshotStore) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
	}
	return s.db.Close()
}

func (s *SnapshotStore) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("badger value log GC error", slog.Any("error", err))
			}
		}
	}
}

// NormaliseLimit applies the default and maximum page sizes.
func NormaliseLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func snapshotKey(id string) []byte {
	return []byte(snapshotPrefix + id)
}

// classIndexKey orders entries newest first under forward iteration.
func classIndexKey(classID string, at time.Time, id string) []byte {
	inverted := uint64(math.MaxInt64 - at.UnixNano())
	key := classIndexPrefix(classID)
	key = fmt.Appendf(key, "%020d/", inverted)
	return append(key, id...)
}

func classIndexPrefix(classID string) []byte {
	return []byte(classPrefix + url.PathEscape(classID) + "/")
}

func readJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}
