package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/sociogram/internal/extractors"
	"github.com/classpulse/sociogram/internal/metrics"
	"github.com/classpulse/sociogram/internal/models"
)

const defaultCommentaryTimeout = 20 * time.Second

// Commentator produces a narrative summary of a class network.
type Commentator interface {
	Summarize(ctx context.Context, summary models.ClassNetworkSummary, insights []models.AnalysisInsight) (string, error)
}

// Pipeline orchestrates one analysis run: extraction, per-student analysis,
// class summary, insights, recommendations and optional commentary.
type Pipeline struct {
	logger            *slog.Logger
	rulesEngine       *RuleEngine
	commentator       Commentator
	commentaryTimeout time.Duration
	now               func() time.Time
	newID             func() string
}

// NewPipeline constructs a new analysis pipeline. rulesEngine and commentator
// are optional.
func NewPipeline(logger *slog.Logger, rulesEngine *RuleEngine, commentator Commentator, commentaryTimeout time.Duration) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if commentaryTimeout <= 0 {
		commentaryTimeout = defaultCommentaryTimeout
	}
	return &Pipeline{
		logger:            logger,
		rulesEngine:       rulesEngine,
		commentator:       commentator,
		commentaryTimeout: commentaryTimeout,
		now:               func() time.Time { return time.Now().UTC() },
		newID:             uuid.NewString,
	}
}

// Analyze runs the full analysis for one survey. It fails only when the
// pipeline is nil or ctx is done; malformed survey content degrades the
// output instead.
func (p *Pipeline) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	if p == nil {
		return models.AnalysisResult{}, errors.New("pipeline not configured")
	}
	if err := ctx.Err(); err != nil {
		return models.AnalysisResult{}, err
	}

	roster := ActiveRoster(req.Students)
	relationships, stats := extractors.ProcessResponsesWithStats(req.Responses)
	metrics.ObserveSkipped("response", stats.SkippedResponses)
	metrics.ObserveSkipped("answer", stats.SkippedAnswers)
	metrics.ObserveSkipped("nomination", stats.SkippedNominations)
	if stats.SkippedResponses+stats.SkippedAnswers+stats.SkippedNominations > 0 {
		p.logger.Debug("skipped malformed survey items",
			slog.String("survey_id", req.SurveyID),
			slog.Int("responses", stats.SkippedResponses),
			slog.Int("answers", stats.SkippedAnswers),
			slog.Int("nominations", stats.SkippedNominations),
		)
	}

	analyses := AnalyzeStudents(relationships, roster)
	summary := AnalyzeClassNetwork(req.SurveyID, req.ClassID, roster, relationships)
	insights := GenerateInsights(analyses, summary, roster, relationships)
	insights = p.rulesEngine.Apply(insights)
	recommendations := GenerateRecommendations(analyses, summary, insights)

	if p.commentator != nil && len(roster) > 0 {
		summary.AICommentary = p.commentary(ctx, summary, insights)
	}

	if err := ctx.Err(); err != nil {
		return models.AnalysisResult{}, err
	}

	result := models.AnalysisResult{
		AnalysisID:      p.newID(),
		SurveyID:        req.SurveyID,
		ClassID:         req.ClassID,
		SurveyTitle:     req.SurveyTitle,
		TotalResponses:  len(req.Responses),
		ResponseRate:    ResponseRate(req.Responses, roster),
		NetworkData:     models.NetworkData{Relationships: relationships, Analyses: analyses, Summary: summary},
		Insights:        insights,
		Recommendations: recommendations,
		GeneratedAt:     p.now(),
	}

	p.logger.Debug("analysis complete",
		slog.String("analysis_id", result.AnalysisID),
		slog.String("survey_id", req.SurveyID),
		slog.Int("students", len(roster)),
		slog.Int("relationships", len(relationships)),
		slog.Int("insights", len(insights)),
	)
	return result, nil
}

func (p *Pipeline) commentary(ctx context.Context, summary models.ClassNetworkSummary, insights []models.AnalysisInsight) string {
	cctx, cancel := context.WithTimeout(ctx, p.commentaryTimeout)
	defer cancel()

	text, err := p.commentator.Summarize(cctx, summary, insights)
	if err != nil {
		p.logger.Warn("commentary generation failed", slog.String("survey_id", summary.SurveyID), slog.Any("error", err))
		return ""
	}
	return strings.TrimSpace(text)
}

// ActiveRoster drops inactive students and duplicate IDs, preserving order.
func ActiveRoster(students []models.Student) []models.Student {
	roster := make([]models.Student, 0, len(students))
	seen := make(map[string]struct{}, len(students))
	for _, s := range students {
		if s.Inactive || s.ID == "" {
			continue
		}
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		roster = append(roster, s)
	}
	return roster
}

// ResponseRate is the percentage of roster members who submitted at least one
// response, in [0,100].
func ResponseRate(responses []models.SurveyResponse, roster []models.Student) float64 {
	if len(roster) == 0 {
		return 0
	}
	members := make(map[string]struct{}, len(roster))
	for _, s := range roster {
		members[s.ID] = struct{}{}
	}
	responded := make(map[string]struct{})
	for _, r := range responses {
		id := strings.TrimSpace(r.RespondentID)
		if _, ok := members[id]; ok {
			responded[id] = struct{}{}
		}
	}
	return float64(len(responded)) / float64(len(roster)) * 100
}
