package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/sociogram/internal/models"
)

func openTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	store, err := OpenSnapshotStore(StoreConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func result(id, classID string, at time.Time) models.AnalysisResult {
	return models.AnalysisResult{
		AnalysisID:     id,
		SurveyID:       "survey-" + id,
		ClassID:        classID,
		TotalResponses: 3,
		ResponseRate:   75,
		NetworkData: models.NetworkData{
			Relationships: []models.StudentRelationship{{FromStudentID: "A", ToStudentID: "B", Type: models.RelationshipFriend, Strength: 1}},
			Analyses:      []models.NetworkAnalysis{{StudentID: "A", IsolationRisk: models.IsolationRiskLow}},
			Summary:       models.ClassNetworkSummary{ClassID: classID, TotalStudents: 4, IsolatedStudents: []string{"C"}},
		},
		Insights:        []models.AnalysisInsight{{ID: "s:isolation_risk", Type: models.InsightIsolationRisk}},
		Recommendations: []models.Recommendation{},
		GeneratedAt:     at,
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	at := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)

	want := result("a1", "class-1", at)
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, want.SurveyID, got.SurveyID)
	assert.Equal(t, want.NetworkData, got.NetworkData)
	assert.Equal(t, want.Insights, got.Insights)
	assert.True(t, want.GeneratedAt.Equal(got.GeneratedAt))
}

func TestSnapshotGetMissing(t *testing.T) {
	_, err := openTestStore(t).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotSaveRequiresID(t *testing.T) {
	err := openTestStore(t).Save(context.Background(), models.AnalysisResult{ClassID: "c"})
	assert.Error(t, err)
}

func TestSnapshotListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, result(fmt.Sprintf("a%d", i), "class-1", base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, store.Save(ctx, result("other", "class-10", base)))
	require.NoError(t, store.Save(ctx, result("unclassed", "", base)))

	all, err := store.List(ctx, models.SnapshotQuery{ClassID: "class-1"})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "a4", all[0].AnalysisID)
	assert.Equal(t, "a0", all[4].AnalysisID)

	page, err := store.List(ctx, models.SnapshotQuery{ClassID: "class-1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a3", page[1].AnalysisID)

	none, err := store.List(ctx, models.SnapshotQuery{ClassID: "class-2"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = store.List(ctx, models.SnapshotQuery{})
	assert.Error(t, err)
}

func TestStoreTrends(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	trends := []models.StudentTrend{{StudentID: "C", Snapshots: 2, IsolatedCount: 2, Persistent: true}}
	require.NoError(t, store.StoreTrends(ctx, "class/1", trends))

	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("trends/class%2F1"))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var got []models.StudentTrend
			require.NoError(t, json.Unmarshal(val, &got))
			assert.Equal(t, trends, got)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestSnapshotCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := openTestStore(t)
	assert.ErrorIs(t, store.Save(ctx, result("a", "c", time.Now())), context.Canceled)
	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenSnapshotStoreRequiresPath(t *testing.T) {
	_, err := OpenSnapshotStore(StoreConfig{})
	assert.Error(t, err)
}

func TestOpenSnapshotStorePersistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenSnapshotStore(StoreConfig{Path: dir, SyncWrites: true, GCInterval: time.Hour})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, result("p1", "class-1", time.Now().UTC())))
	require.NoError(t, store.Close())

	reopened, err := OpenSnapshotStore(StoreConfig{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "class-1", got.ClassID)
}

func TestNormaliseLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, NormaliseLimit(0))
	assert.Equal(t, 5, NormaliseLimit(5))
	assert.Equal(t, MaxListLimit, NormaliseLimit(MaxListLimit+1))
}
