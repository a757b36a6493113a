package patterns

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/classpulse/sociogram/internal/models"
)

// persistentIsolationSnapshots is the number of snapshots a student must be
// isolated in before the isolation is reported as persistent.
const persistentIsolationSnapshots = 2

// Store abstracts persistence for mined trends.
type Store interface {
	StoreTrends(ctx context.Context, classID string, trends []models.StudentTrend) error
}

// Miner aggregates a class's analysis snapshots into per-student trends.
type Miner struct {
	store  Store
	logger *slog.Logger
}

// NewMiner constructs a Miner; store may be nil for dry runs.
func NewMiner(logger *slog.Logger, store Store) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{store: store, logger: logger}
}

// Mine counts, per student, the snapshots in which they were isolated, at
// high risk, popular or a bridge. Results are ordered by isolated count
// (descending) then student ID.
func (m *Miner) Mine(ctx context.Context, classID string, snapshots []models.AnalysisResult) ([]models.StudentTrend, error) {
	if len(snapshots) == 0 {
		return []models.StudentTrend{}, nil
	}

	stats := make(map[string]*studentAggregate)
	for _, snap := range snapshots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary := snap.NetworkData.Summary
		isolated := toSet(summary.IsolatedStudents)
		popular := toSet(summary.PopularStudents)
		bridges := toSet(summary.BridgeStudents)

		for _, analysis := range snap.NetworkData.Analyses {
			agg := ensureAggregate(stats, analysis.StudentID)
			agg.snapshots++
			if analysis.IsolationRisk == models.IsolationRiskHigh {
				agg.highRisk++
			}
			if _, ok := isolated[analysis.StudentID]; ok {
				agg.isolated++
			}
			if _, ok := popular[analysis.StudentID]; ok {
				agg.popular++
			}
			if _, ok := bridges[analysis.StudentID]; ok {
				agg.bridge++
			}
			if snap.GeneratedAt.After(agg.lastSeen) {
				agg.lastSeen = snap.GeneratedAt
			}
		}
	}

	trends := make([]models.StudentTrend, 0, len(stats))
	for id, agg := range stats {
		trends = append(trends, models.StudentTrend{
			StudentID:     id,
			Snapshots:     agg.snapshots,
			IsolatedCount: agg.isolated,
			HighRiskCount: agg.highRisk,
			PopularCount:  agg.popular,
			BridgeCount:   agg.bridge,
			Persistent:    agg.isolated >= persistentIsolationSnapshots,
			LastSeen:      agg.lastSeen,
		})
	}

	sort.Slice(trends, func(i, j int) bool {
		if trends[i].IsolatedCount != trends[j].IsolatedCount {
			return trends[i].IsolatedCount > trends[j].IsolatedCount
		}
		return trends[i].StudentID < trends[j].StudentID
	})

	if m.store != nil && len(trends) > 0 {
		if err := m.store.StoreTrends(ctx, classID, trends); err != nil {
			m.logger.Warn("trend store failed", slog.String("class_id", classID), slog.Any("error", err))
		}
	}

	return trends, nil
}

type studentAggregate struct {
	snapshots int
	isolated  int
	highRisk  int
	popular   int
	bridge    int
	lastSeen  time.Time
}

func ensureAggregate(m map[string]*studentAggregate, studentID string) *studentAggregate {
	agg, ok := m[studentID]
	if !ok {
		agg = &studentAggregate{}
		m[studentID] = agg
	}
	return agg
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
