package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/classpulse/sociogram/internal/models"
)

const recommendationDensityThreshold = 0.20

var isolationActionSteps = []string{
	"Pair each listed student with a supportive classmate for the next two weeks",
	"Assign them a visible role in small-group activities",
	"Hold a short one-to-one check-in to understand their peer relationships",
	"Re-run the survey after one month to measure change",
}

// GenerateRecommendations derives up to three structured action plans from the
// class summary: an intervention for isolated students, a grouping plan built
// around bridge students and a class-wide plan when density is low.
func GenerateRecommendations(analyses []models.NetworkAnalysis, summary models.ClassNetworkSummary, insights []models.AnalysisInsight) []models.Recommendation {
	recs := make([]models.Recommendation, 0, 3)
	if summary.TotalStudents == 0 {
		return recs
	}

	if len(summary.IsolatedStudents) > 0 {
		recs = append(recs, models.Recommendation{
			Type:           models.RecommendationIntervention,
			Title:          "Support isolated students",
			Description:    fmt.Sprintf("%d students have at most one peer connection: %s.", len(summary.IsolatedStudents), strings.Join(summary.IsolatedStudents, ", ")),
			Priority:       models.PriorityHigh,
			TargetStudents: append([]string(nil), summary.IsolatedStudents...),
			ActionSteps:    append([]string(nil), isolationActionSteps...),
		})
	}

	if len(summary.BridgeStudents) > 0 {
		recs = append(recs, models.Recommendation{
			Type:           models.RecommendationGrouping,
			Title:          "Build groups around bridge students",
			Description:    fmt.Sprintf("%d students connect otherwise separate peers and can anchor mixed groups.", len(summary.BridgeStudents)),
			Priority:       models.PriorityMedium,
			TargetStudents: append([]string(nil), summary.BridgeStudents...),
			ActionSteps: []string{
				"Place one bridge student in each project group",
				"Ask bridge students to introduce group members who rarely interact",
				"Rotate group composition every few weeks",
			},
		})
	}

	if summary.NetworkDensity < recommendationDensityThreshold {
		recs = append(recs, models.Recommendation{
			Type:           models.RecommendationIntervention,
			Title:          "Strengthen the class network",
			Description:    fmt.Sprintf("Network density is %.2f, below %.2f; most students have few ties.", summary.NetworkDensity, recommendationDensityThreshold),
			Priority:       models.PriorityMedium,
			TargetStudents: []string{},
			ActionSteps: []string{
				"Run whole-class cooperative games at the start of the week",
				"Change seating arrangements regularly",
				"Use structured peer-interview activities to introduce classmates",
			},
		})
	}

	return recs
}

// RuleEngine overrides the built-in recommendation text of insights with
// entries from a YAML rule pack.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule replaces the recommendation of every insight it matches.
type Rule struct {
	ID             string    `yaml:"id"`
	Match          RuleMatch `yaml:"match"`
	Recommendation string    `yaml:"recommendation"`
}

// RuleMatch defines optional attributes for rule matching.
type RuleMatch struct {
	Type     string `yaml:"type"`
	Severity string `yaml:"severity"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Insights []Rule `yaml:"insights"`
}

// NewRuleEngine loads rules from the provided path. If path is empty or the
// file does not exist, returns nil engine.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rule pack %s: %w", path, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleEngine{rules: cfg.Insights, logger: logger}, nil
}

// Apply returns a copy of insights with matching recommendations replaced.
// The first matching rule wins.
func (e *RuleEngine) Apply(insights []models.AnalysisInsight) []models.AnalysisInsight {
	out := make([]models.AnalysisInsight, len(insights))
	copy(out, insights)
	if e == nil {
		return out
	}
	for i := range out {
		for _, rule := range e.rules {
			if !rule.matches(out[i]) || rule.Recommendation == "" {
				continue
			}
			e.logger.Debug("insight rule applied", slog.String("rule", rule.ID), slog.String("insight", string(out[i].Type)))
			out[i].Recommendation = rule.Recommendation
			break
		}
	}
	return out
}

// Len reports the number of loaded rules.
func (e *RuleEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

func (r Rule) matches(insight models.AnalysisInsight) bool {
	if r.Match.Type != "" && !strings.EqualFold(r.Match.Type, string(insight.Type)) {
		return false
	}
	if r.Match.Severity != "" && !strings.EqualFold(r.Match.Severity, string(insight.Severity)) {
		return false
	}
	return true
}
