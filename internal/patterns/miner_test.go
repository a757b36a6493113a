package patterns

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/classpulse/sociogram/internal/models"
)

type fakeTrendStore struct {
	stored int
}

func (f *fakeTrendStore) StoreTrends(ctx context.Context, classID string, trends []models.StudentTrend) error {
	f.stored += len(trends)
	return nil
}

func snapshot(at time.Time, isolated, popular, bridges []string, risks map[string]models.IsolationRisk) models.AnalysisResult {
	analyses := make([]models.NetworkAnalysis, 0, len(risks))
	for _, id := range []string{"A", "B", "C"} {
		if risk, ok := risks[id]; ok {
			analyses = append(analyses, models.NetworkAnalysis{StudentID: id, IsolationRisk: risk})
		}
	}
	return models.AnalysisResult{
		ClassID:     "class-1",
		GeneratedAt: at,
		NetworkData: models.NetworkData{
			Analyses: analyses,
			Summary: models.ClassNetworkSummary{
				IsolatedStudents: isolated,
				PopularStudents:  popular,
				BridgeStudents:   bridges,
			},
		},
	}
}

func TestMinerMinesTrends(t *testing.T) {
	store := &fakeTrendStore{}
	miner := NewMiner(nil, store)

	first := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	second := first.Add(30 * 24 * time.Hour)
	snapshots := []models.AnalysisResult{
		snapshot(first, []string{"C"}, []string{"A"}, nil, map[string]models.IsolationRisk{
			"A": models.IsolationRiskLow, "B": models.IsolationRiskMedium, "C": models.IsolationRiskHigh,
		}),
		snapshot(second, []string{"C", "B"}, nil, []string{"A"}, map[string]models.IsolationRisk{
			"A": models.IsolationRiskLow, "B": models.IsolationRiskHigh, "C": models.IsolationRiskHigh,
		}),
	}

	trends, err := miner.Mine(context.Background(), "class-1", snapshots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trends) != 3 {
		t.Fatalf("expected 3 trends, got %d", len(trends))
	}
	if trends[0].StudentID != "C" || trends[0].IsolatedCount != 2 || !trends[0].Persistent {
		t.Fatalf("expected C first with persistent isolation, got %+v", trends[0])
	}
	if trends[0].HighRiskCount != 2 || !trends[0].LastSeen.Equal(second) {
		t.Fatalf("unexpected aggregate for C: %+v", trends[0])
	}
	if trends[1].StudentID != "B" || trends[1].Persistent {
		t.Fatalf("expected B second without persistent isolation, got %+v", trends[1])
	}
	if trends[2].StudentID != "A" || trends[2].PopularCount != 1 || trends[2].BridgeCount != 1 || trends[2].Snapshots != 2 {
		t.Fatalf("unexpected aggregate for A: %+v", trends[2])
	}
	if store.stored != 3 {
		t.Fatalf("expected trends to be stored, got %d", store.stored)
	}
}

func TestMinerEmpty(t *testing.T) {
	trends, err := NewMiner(nil, nil).Mine(context.Background(), "class-1", nil)
	if err != nil || trends == nil || len(trends) != 0 {
		t.Fatalf("expected empty trends, got %v %v", trends, err)
	}
}

func TestMinerStoreFailureIgnored(t *testing.T) {
	store := StoreFunc(func(ctx context.Context, classID string, trends []models.StudentTrend) error {
		return errors.New("disk full")
	})
	snap := snapshot(time.Now(), []string{"A"}, nil, nil, map[string]models.IsolationRisk{"A": models.IsolationRiskHigh})
	trends, err := NewMiner(nil, store).Mine(context.Background(), "class-1", []models.AnalysisResult{snap})
	if err != nil {
		t.Fatalf("expected store failure to be logged only, got %v", err)
	}
	if len(trends) != 1 {
		t.Fatalf("expected one trend, got %d", len(trends))
	}
}
