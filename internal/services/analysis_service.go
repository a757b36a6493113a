package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/classpulse/sociogram/internal/api"
	"github.com/classpulse/sociogram/internal/cache"
	"github.com/classpulse/sociogram/internal/engine"
	"github.com/classpulse/sociogram/internal/metrics"
	"github.com/classpulse/sociogram/internal/models"
	"github.com/classpulse/sociogram/internal/patterns"
	"github.com/classpulse/sociogram/internal/utils"
)

const (
	// MaxRosterSize bounds the quadratic graph work of a single request.
	MaxRosterSize = 500

	cacheKeyPrefix = "sociogram:analysis:"
)

var tracer = otel.Tracer("sociogram.services")

// SnapshotStore persists analysis results for history and trend mining.
type SnapshotStore interface {
	Save(ctx context.Context, result models.AnalysisResult) error
	Get(ctx context.Context, id string) (models.AnalysisResult, error)
	List(ctx context.Context, query models.SnapshotQuery) ([]models.AnalysisResult, error)
}

// AnalysisService fronts the pipeline with caching, persistence and metrics.
// It serves both the HTTP API and the gRPC NetworkAnalyzer service.
type AnalysisService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	store     SnapshotStore
	miner     *patterns.Miner
	cache     cache.Provider
	cacheTTL  time.Duration
	latencies *utils.LatencyTracker
}

// NewAnalysisService wires the service. store and miner may be nil; a nil
// cache provider disables caching.
func NewAnalysisService(logger *slog.Logger, pipeline *engine.Pipeline, store SnapshotStore, miner *patterns.Miner, cacheProvider cache.Provider, cacheTTL time.Duration) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &AnalysisService{
		logger:    logger,
		pipeline:  pipeline,
		store:     store,
		miner:     miner,
		cache:     cacheProvider,
		cacheTTL:  cacheTTL,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Analyze runs one analysis, serving repeated identical requests from cache.
func (s *AnalysisService) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "AnalysisService.Analyze",
		trace.WithAttributes(
			attribute.String("survey.id", req.SurveyID),
			attribute.Int("survey.students", len(req.Students)),
			attribute.Int("survey.responses", len(req.Responses)),
		),
	)
	defer span.End()

	if err := validateRequest(req); err != nil {
		span.SetStatus(otelcodes.Error, "invalid request")
		return models.AnalysisResult{}, err
	}
	if s.pipeline == nil {
		return models.AnalysisResult{}, utils.NewAppError("services.Analyze", "pipeline not configured", utils.ErrUnavailable)
	}

	key, err := cacheKey(req)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("cache key: %w", err)
	}
	if result, ok := s.cached(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return result, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	start := time.Now()
	result, err := s.pipeline.Analyze(ctx, req)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, metrics.OutcomeError)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "analysis failed")
		s.logger.Error("analysis failed", slog.String("survey_id", req.SurveyID), slog.Any("error", err))
		return models.AnalysisResult{}, err
	}
	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("analysis latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}
	span.SetAttributes(
		attribute.String("analysis.id", result.AnalysisID),
		attribute.Int("analysis.relationships", len(result.NetworkData.Relationships)),
		attribute.Int("analysis.insights", len(result.Insights)),
	)

	if s.store != nil {
		if err := s.store.Save(ctx, result); err != nil {
			s.logger.Warn("snapshot save failed", slog.String("analysis_id", result.AnalysisID), slog.Any("error", err))
		}
	}
	s.fill(ctx, key, result)

	return result, nil
}

// Snapshot returns a stored analysis by ID.
func (s *AnalysisService) Snapshot(ctx context.Context, id string) (models.AnalysisResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.AnalysisResult{}, utils.NewAppError("services.Snapshot", "analysis id is required", utils.ErrInvalidRequest)
	}
	if s.store == nil {
		return models.AnalysisResult{}, storeDisabled("services.Snapshot")
	}
	return s.store.Get(ctx, id)
}

// History lists stored analyses of a class, newest first.
func (s *AnalysisService) History(ctx context.Context, classID string, limit int) ([]models.AnalysisResult, error) {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return nil, utils.NewAppError("services.History", "class id is required", utils.ErrInvalidRequest)
	}
	if s.store == nil {
		return nil, storeDisabled("services.History")
	}
	return s.store.List(ctx, models.SnapshotQuery{ClassID: classID, Limit: limit})
}

// Trends mines per-student trends over a class's recent analyses.
func (s *AnalysisService) Trends(ctx context.Context, classID string, limit int) ([]models.StudentTrend, error) {
	snapshots, err := s.History(ctx, classID, limit)
	if err != nil {
		return nil, err
	}
	if s.miner == nil {
		return nil, utils.NewAppError("services.Trends", "trend mining not configured", utils.ErrUnavailable)
	}
	return s.miner.Mine(ctx, strings.TrimSpace(classID), snapshots)
}

// AnalyzeSurvey implements the gRPC NetworkAnalyzer service.
func (s *AnalysisService) AnalyzeSurvey(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := api.StructToAnalysisRequest(in)
	if err != nil {
		return nil, grpcError(err)
	}
	s.logger.Debug("AnalyzeSurvey called", slog.String("survey_id", req.SurveyID), slog.Int("students", len(req.Students)))

	result, err := s.Analyze(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	out, err := api.ToStruct(result)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// GetSnapshot implements the gRPC NetworkAnalyzer service.
func (s *AnalysisService) GetSnapshot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	result, err := s.Snapshot(ctx, in.GetFields()["id"].GetStringValue())
	if err != nil {
		return nil, grpcError(err)
	}
	out, err := api.ToStruct(result)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// LatencyP95 returns the current p95 analysis latency.
func (s *AnalysisService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *AnalysisService) cached(ctx context.Context, key string) (models.AnalysisResult, bool) {
	var result models.AnalysisResult
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache lookup failed", slog.Any("error", err))
		}
		metrics.ObserveCacheLookup(false)
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn("discarding undecodable cache entry", slog.String("key", key), slog.Any("error", err))
		_ = s.cache.Del(ctx, key)
		metrics.ObserveCacheLookup(false)
		return result, false
	}
	metrics.ObserveCacheLookup(true)
	return result, true
}

func (s *AnalysisService) fill(ctx context.Context, key string, result models.AnalysisResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("encode cache entry", slog.Any("error", err))
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("cache fill failed", slog.Any("error", err))
	}
}

func validateRequest(req models.AnalysisRequest) error {
	if strings.TrimSpace(req.SurveyID) == "" {
		return utils.NewAppError("services.Analyze", "surveyId is required", utils.ErrInvalidRequest)
	}
	if len(req.Students) > MaxRosterSize {
		return utils.NewAppError("services.Analyze",
			fmt.Sprintf("roster of %d students exceeds the limit of %d", len(req.Students), MaxRosterSize),
			utils.ErrInvalidRequest)
	}
	return nil
}

// cacheKey hashes the request's wire encoding, which keeps malformed answers
// distinct from empty ones.
func cacheKey(req models.AnalysisRequest) (string, error) {
	data, err := json.Marshal(api.EncodeRequestBody(req))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}

func storeDisabled(op string) error {
	return utils.NewAppError(op, "snapshot store not configured", utils.ErrUnavailable)
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, utils.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, utils.Message(err, err.Error()))
	case errors.Is(err, utils.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, utils.ErrUnavailable):
		return status.Error(codes.Unavailable, utils.Message(err, err.Error()))
	default:
		return status.Error(codes.Internal, fmt.Sprintf("analysis failed: %v", err))
	}
}
