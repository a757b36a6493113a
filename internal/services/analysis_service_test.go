package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/classpulse/sociogram/internal/cache"
	"github.com/classpulse/sociogram/internal/engine"
	"github.com/classpulse/sociogram/internal/models"
	"github.com/classpulse/sociogram/internal/patterns"
	"github.com/classpulse/sociogram/internal/utils"
)

type memoryStore struct {
	mu      sync.Mutex
	saved   []models.AnalysisResult
	saveErr error
}

func (m *memoryStore) Save(_ context.Context, result models.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, result)
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (models.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.saved {
		if r.AnalysisID == id {
			return r, nil
		}
	}
	return models.AnalysisResult{}, fmt.Errorf("snapshot %w", utils.ErrNotFound)
}

func (m *memoryStore) List(_ context.Context, query models.SnapshotQuery) ([]models.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AnalysisResult
	for _, r := range m.saved {
		if r.ClassID == query.ClassID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, nil
}

func classRequest(surveyID string) models.AnalysisRequest {
	answer := func(respondent string, nominees ...string) models.SurveyResponse {
		return models.SurveyResponse{
			RespondentID: respondent,
			Answers:      []models.Answer{{QuestionID: "friend_q1", Nominations: nominees}},
		}
	}
	return models.AnalysisRequest{
		SurveyID: surveyID,
		ClassID:  "class-1",
		Students: []models.Student{
			{ID: "A"}, {ID: "B"}, {ID: "C"}, {ID: "D"},
		},
		Responses: []models.SurveyResponse{
			answer("A", "B"),
			answer("B", "A", "C"),
			answer("C", "B"),
		},
	}
}

func newTestService(store SnapshotStore, provider cache.Provider) *AnalysisService {
	pipeline := engine.NewPipeline(nil, nil, nil, 0)
	var miner *patterns.Miner
	if store != nil {
		miner = patterns.NewMiner(nil, nil)
	}
	return NewAnalysisService(nil, pipeline, store, miner, provider, 0)
}

func TestAnalyzeStoresSnapshot(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(store, nil)

	result, err := svc.Analyze(context.Background(), classRequest("s1"))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.AnalysisID == "" {
		t.Fatalf("expected an analysis id")
	}
	if len(store.saved) != 1 || store.saved[0].AnalysisID != result.AnalysisID {
		t.Fatalf("expected snapshot to be stored, got %+v", store.saved)
	}

	got, err := svc.Snapshot(context.Background(), result.AnalysisID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got.SurveyID != "s1" {
		t.Fatalf("unexpected snapshot survey %q", got.SurveyID)
	}
}

func TestAnalyzeCacheHitSkipsPipeline(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(store, cache.NewMemoryProvider())

	first, err := svc.Analyze(context.Background(), classRequest("s1"))
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	second, err := svc.Analyze(context.Background(), classRequest("s1"))
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if second.AnalysisID != first.AnalysisID {
		t.Fatalf("expected cached result %s, got %s", first.AnalysisID, second.AnalysisID)
	}
	if len(store.saved) != 1 {
		t.Fatalf("cache hit must not store again, got %d snapshots", len(store.saved))
	}

	third, err := svc.Analyze(context.Background(), classRequest("s2"))
	if err != nil {
		t.Fatalf("third analyze: %v", err)
	}
	if third.AnalysisID == first.AnalysisID {
		t.Fatalf("different request must not hit the cache")
	}
}

func TestAnalyzeStoreFailureIsNotFatal(t *testing.T) {
	svc := newTestService(&memoryStore{saveErr: errors.New("disk full")}, nil)
	if _, err := svc.Analyze(context.Background(), classRequest("s1")); err != nil {
		t.Fatalf("store failure should be logged only, got %v", err)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	svc := newTestService(nil, nil)

	_, err := svc.Analyze(context.Background(), models.AnalysisRequest{SurveyID: "  "})
	if !errors.Is(err, utils.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}

	big := models.AnalysisRequest{SurveyID: "s1", Students: make([]models.Student, MaxRosterSize+1)}
	if _, err := svc.Analyze(context.Background(), big); !errors.Is(err, utils.ErrInvalidRequest) {
		t.Fatalf("expected oversized roster to be rejected, got %v", err)
	}
}

func TestAnalyzeCancelledContext(t *testing.T) {
	svc := newTestService(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, classRequest("s1"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if code := status.Code(grpcError(err)); code != codes.Canceled {
		t.Fatalf("expected Canceled code, got %v", code)
	}
}

func TestStoreBackedOperationsWithoutStore(t *testing.T) {
	svc := newTestService(nil, nil)

	if _, err := svc.Snapshot(context.Background(), "a1"); !errors.Is(err, utils.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := svc.History(context.Background(), "class-1", 0); !errors.Is(err, utils.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := svc.Trends(context.Background(), "class-1", 0); !errors.Is(err, utils.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := svc.History(context.Background(), " ", 0); !errors.Is(err, utils.ErrInvalidRequest) {
		t.Fatalf("expected invalid request for blank class, got %v", err)
	}
}

func TestTrendsAcrossSnapshots(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(store, nil)

	for _, id := range []string{"s1", "s2"} {
		if _, err := svc.Analyze(context.Background(), classRequest(id)); err != nil {
			t.Fatalf("analyze %s: %v", id, err)
		}
	}

	trends, err := svc.Trends(context.Background(), "class-1", 10)
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if len(trends) != 4 {
		t.Fatalf("expected a trend per student, got %+v", trends)
	}
	byID := make(map[string]models.StudentTrend, len(trends))
	for _, trend := range trends {
		byID[trend.StudentID] = trend
	}
	if d := byID["D"]; !d.Persistent || d.IsolatedCount != 2 || d.Snapshots != 2 {
		t.Fatalf("expected persistent isolation for D, got %+v", d)
	}
	if b := byID["B"]; b.Persistent || b.IsolatedCount != 0 {
		t.Fatalf("B is connected to two classmates, got %+v", b)
	}
}

func TestGRPCAnalyzeSurvey(t *testing.T) {
	svc := newTestService(&memoryStore{}, nil)

	in, err := structpb.NewStruct(map[string]interface{}{
		"surveyId": "s1",
		"students": []interface{}{map[string]interface{}{"id": "A"}, map[string]interface{}{"id": "B"}},
		"responses": []interface{}{map[string]interface{}{
			"respondentId": "A",
			"answers": []interface{}{map[string]interface{}{
				"questionId":       "friend_q1",
				"selectedStudents": []interface{}{"B"},
			}},
		}},
	})
	if err != nil {
		t.Fatalf("build struct: %v", err)
	}

	out, err := svc.AnalyzeSurvey(context.Background(), in)
	if err != nil {
		t.Fatalf("AnalyzeSurvey: %v", err)
	}
	id := out.GetFields()["analysisId"].GetStringValue()
	if id == "" {
		t.Fatalf("expected analysisId in response")
	}

	snap, err := svc.GetSnapshot(context.Background(), &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue(id)}})
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.GetFields()["surveyId"].GetStringValue() != "s1" {
		t.Fatalf("unexpected snapshot %v", snap)
	}
}

func TestGRPCStatusCodes(t *testing.T) {
	svc := newTestService(&memoryStore{}, nil)

	_, err := svc.AnalyzeSurvey(context.Background(), &structpb.Struct{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	_, err = svc.GetSnapshot(context.Background(), &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue("missing")}})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	_, err = newTestService(nil, nil).GetSnapshot(context.Background(), &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue("a1")}})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
	if !strings.Contains(status.Convert(err).Message(), "not configured") {
		t.Fatalf("unexpected message %q", status.Convert(err).Message())
	}

	if status.Code(grpcError(errors.New("boom"))) != codes.Internal {
		t.Fatalf("expected Internal for unclassified errors")
	}
}
