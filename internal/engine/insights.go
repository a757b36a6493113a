package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/classpulse/sociogram/internal/models"
)

// Insight thresholds.
const (
	lowDensityThreshold       = 0.10
	genderGapThreshold        = 2.0
	popularityShareThreshold  = 0.40
	subgroupCoverageThreshold = 0.60
	minSubgroupSize           = 3
	cliqueCountThreshold      = 2
	passiveShareThreshold     = 0.30
	criticalClimateThreshold  = 0.40
	stableClimateThreshold    = 0.60
	learningCoverageThreshold = 0.50
)

// CommunicationPattern classifies how a student engages with peers.
type CommunicationPattern string

const (
	PatternActive    CommunicationPattern = "active"
	PatternSelective CommunicationPattern = "selective"
	PatternPassive   CommunicationPattern = "passive"
	PatternIsolated  CommunicationPattern = "isolated"
)

type insightCheck func(ic *insightContext) (models.AnalysisInsight, bool)

type insightContext struct {
	analyses      []models.NetworkAnalysis
	summary       models.ClassNetworkSummary
	roster        []models.Student
	relationships []models.StudentRelationship
	size          float64
}

// GenerateInsights runs the fixed battery of heuristic checks in order and
// returns every insight that fires. The four edge-based checks run only when
// relationships is non-empty. An empty roster yields no insights.
func GenerateInsights(analyses []models.NetworkAnalysis, summary models.ClassNetworkSummary, roster []models.Student, relationships []models.StudentRelationship) []models.AnalysisInsight {
	insights := make([]models.AnalysisInsight, 0)
	if len(roster) == 0 {
		return insights
	}

	ic := &insightContext{
		analyses:      analyses,
		summary:       summary,
		roster:        roster,
		relationships: relationships,
		size:          float64(len(roster)),
	}

	checks := []insightCheck{
		checkIsolationRisk,
		checkLowDensity,
		checkGenderGap,
		checkPopularityConcentration,
		checkSubgroupFormation,
		checkCliqueCount,
	}
	if len(relationships) > 0 {
		checks = append(checks,
			checkCommunicationPatterns,
			checkEmotionalClimate,
			checkGrowthPrediction,
			checkLearningNetwork,
		)
	}

	for _, check := range checks {
		if insight, ok := check(ic); ok {
			insight.ID = insightID(summary.SurveyID, insight.Type)
			insights = append(insights, insight)
		}
	}
	return insights
}

func insightID(surveyID string, kind models.InsightType) string {
	if surveyID == "" {
		return string(kind)
	}
	return surveyID + ":" + string(kind)
}

func checkIsolationRisk(ic *insightContext) (models.AnalysisInsight, bool) {
	affected := make([]string, 0)
	for _, a := range ic.analyses {
		if a.IsolationRisk == models.IsolationRiskHigh {
			affected = append(affected, a.StudentID)
		}
	}
	if len(affected) == 0 {
		return models.AnalysisInsight{}, false
	}
	return models.AnalysisInsight{
		Type:  models.InsightIsolationRisk,
		Title: "Students at high risk of isolation",
		Description: fmt.Sprintf("%d of %d students (%.0f%%) are connected to fewer than 10%% of the class.",
			len(affected), len(ic.roster), percent(float64(len(affected)), ic.size)),
		Severity:         models.SeverityCritical,
		AffectedStudents: affected,
		Recommendation:   "Arrange structured pair or small-group activities that include the listed students.",
	}, true
}

func checkLowDensity(ic *insightContext) (models.AnalysisInsight, bool) {
	density := ic.summary.NetworkDensity
	if density >= lowDensityThreshold {
		return models.AnalysisInsight{}, false
	}
	return models.AnalysisInsight{
		Type:  models.InsightLowDensity,
		Title: "Sparse class network",
		Description: fmt.Sprintf("Network density is %.3f: only %.1f%% of possible peer ties exist across %d relationships.",
			density, density*100, ic.summary.TotalRelationships),
		Severity:       models.SeverityWarning,
		Recommendation: "Rotate seating and project groups to create new ties across the class.",
	}, true
}

func checkGenderGap(ic *insightContext) (models.AnalysisInsight, bool) {
	genders := make(map[string]string, len(ic.roster))
	for _, s := range ic.roster {
		genders[s.ID] = normalizeGender(s.Gender)
	}

	var maleSum, femaleSum, maleCount, femaleCount int
	for _, a := range ic.analyses {
		switch genders[a.StudentID] {
		case models.GenderMale:
			maleSum += a.TotalConnections
			maleCount++
		case models.GenderFemale:
			femaleSum += a.TotalConnections
			femaleCount++
		}
	}
	if maleCount == 0 || femaleCount == 0 {
		return models.AnalysisInsight{}, false
	}

	maleMean := float64(maleSum) / float64(maleCount)
	femaleMean := float64(femaleSum) / float64(femaleCount)
	gap := math.Abs(maleMean - femaleMean)
	if gap <= genderGapThreshold {
		return models.AnalysisInsight{}, false
	}

	lesser := models.GenderFemale
	if maleMean < femaleMean {
		lesser = models.GenderMale
	}
	return models.AnalysisInsight{
		Type:  models.InsightGenderGap,
		Title: "Gender interaction gap",
		Description: fmt.Sprintf("Male students average %.1f connections and female students %.1f, a gap of %.1f; %s students are less connected.",
			maleMean, femaleMean, gap, lesser),
		Severity:       models.SeverityWarning,
		Recommendation: "Plan mixed-gender cooperative tasks with clearly shared goals.",
	}, true
}

func normalizeGender(g string) string {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case "male", "m", "boy":
		return models.GenderMale
	case "female", "f", "girl":
		return models.GenderFemale
	default:
		return ""
	}
}

func checkPopularityConcentration(ic *insightContext) (models.AnalysisInsight, bool) {
	if len(ic.summary.PopularStudents) == 0 || ic.summary.TotalRelationships == 0 {
		return models.AnalysisInsight{}, false
	}
	popular := toSet(ic.summary.PopularStudents)
	received := 0
	for _, a := range ic.analyses {
		if _, ok := popular[a.StudentID]; ok {
			received += a.IncomingConnections
		}
	}
	share := float64(received) / float64(ic.summary.TotalRelationships)
	if share <= popularityShareThreshold {
		return models.AnalysisInsight{}, false
	}
	return models.AnalysisInsight{
		Type:  models.InsightPopularityConcentration,
		Title: "Nominations concentrated on a few students",
		Description: fmt.Sprintf("%d popular students receive %d of %d nominations (%.0f%%).",
			len(ic.summary.PopularStudents), received, ic.summary.TotalRelationships, share*100),
		Severity:         models.SeverityWarning,
		AffectedStudents: append([]string(nil), ic.summary.PopularStudents...),
		Recommendation:   "Distribute leadership roles so recognition is spread across more students.",
	}, true
}

func checkSubgroupFormation(ic *insightContext) (models.AnalysisInsight, bool) {
	tight := 0
	members := make([]string, 0)
	for _, g := range ic.summary.Groups {
		if g.Cohesion > cliqueCohesion && len(g.Members) >= minSubgroupSize {
			tight++
			members = append(members, g.Members...)
		}
	}
	coverage := ratio(float64(len(members)), ic.size)
	if tight < 2 || coverage <= subgroupCoverageThreshold {
		return models.AnalysisInsight{}, false
	}
	return models.AnalysisInsight{
		Type:  models.InsightSubgroupFormation,
		Title: "Class split into cohesive subgroups",
		Description: fmt.Sprintf("%d tightly knit subgroups cover %d of %d students (%.0f%%).",
			tight, len(members), len(ic.roster), coverage*100),
		Severity:         models.SeverityInfo,
		AffectedStudents: members,
		Recommendation:   "Mix membership of established subgroups during group work.",
	}, true
}

func checkCliqueCount(ic *insightContext) (models.AnalysisInsight, bool) {
	cliques := 0
	members := make([]string, 0)
	for _, g := range ic.summary.Groups {
		if g.Cohesion > cliqueCohesion {
			cliques++
			members = append(members, g.Members...)
		}
	}
	if cliques <= cliqueCountThreshold {
		return models.AnalysisInsight{}, false
	}
	return models.AnalysisInsight{
		Type:             models.InsightCliqueFormation,
		Title:            "Multiple cliques detected",
		Description:      fmt.Sprintf("%d groups have cohesion above %.1f, involving %d students.", cliques, cliqueCohesion, len(members)),
		Severity:         models.SeverityWarning,
		AffectedStudents: members,
		Recommendation:   "Use structured team assignments that cut across existing cliques.",
	}, true
}

// ClassifyCommunication assigns a communication pattern from a student's
// outgoing and reciprocal share of the edges touching them.
func ClassifyCommunication(a models.NetworkAnalysis) CommunicationPattern {
	edges := a.IncomingConnections + a.OutgoingConnections
	if a.TotalConnections == 0 || edges == 0 {
		return PatternIsolated
	}
	outRatio := float64(a.OutgoingConnections) / float64(edges)
	recRatio := float64(a.ReciprocalConnections) / float64(edges)
	switch {
	case outRatio > 0.6:
		return PatternActive
	case outRatio > 0.3 && recRatio > 0.5:
		return PatternSelective
	default:
		return PatternPassive
	}
}

func checkCommunicationPatterns(ic *insightContext) (models.AnalysisInsight, bool) {
	counts := make(map[CommunicationPattern]int)
	affected := make([]string, 0)
	for _, a := range ic.analyses {
		pattern := ClassifyCommunication(a)
		counts[pattern]++
		if pattern == PatternPassive || pattern == PatternIsolated {
			affected = append(affected, a.StudentID)
		}
	}
	share := ratio(float64(len(affected)), ic.size)
	if share <= passiveShareThreshold {
		return models.AnalysisInsight{}, false
	}
	return models.AnalysisInsight{
		Type:  models.InsightCommunicationImbalance,
		Title: "Unbalanced communication patterns",
		Description: fmt.Sprintf("%d passive and %d isolated students make up %.0f%% of the class (%d active, %d selective).",
			counts[PatternPassive], counts[PatternIsolated], share*100, counts[PatternActive], counts[PatternSelective]),
		Severity:         models.SeverityWarning,
		AffectedStudents: affected,
		Recommendation:   "Give passive students low-stakes speaking roles and reciprocal partner tasks.",
	}, true
}

// stabilityScore blends reciprocity, group cohesion and risk spread into [0,1].
func stabilityScore(ic *insightContext) float64 {
	reciprocal := 0
	for _, rel := range ic.relationships {
		if rel.Reciprocal {
			reciprocal++
		}
	}
	reciprocity := ratio(float64(reciprocal), float64(len(ic.relationships)))

	cohesion := 0.0
	for _, g := range ic.summary.Groups {
		cohesion += g.Cohesion
	}
	cohesion = ratio(cohesion, float64(len(ic.summary.Groups)))

	high, medium := 0, 0
	for _, a := range ic.analyses {
		switch a.IsolationRisk {
		case models.IsolationRiskHigh:
			high++
		case models.IsolationRiskMedium:
			medium++
		}
	}
	risk := 1 - ratio(float64(high)+0.5*float64(medium), ic.size)

	return 0.4*reciprocity + 0.3*cohesion + 0.3*risk
}

func checkEmotionalClimate(ic *insightContext) (models.AnalysisInsight, bool) {
	score := stabilityScore(ic)
	switch {
	case score < criticalClimateThreshold:
		return models.AnalysisInsight{
			Type:           models.InsightEmotionalClimate,
			Title:          "Unstable emotional climate",
			Description:    fmt.Sprintf("Relationship stability score is %.2f (below %.2f): few ties are mutual and isolation risk is widespread.", score, criticalClimateThreshold),
			Severity:       models.SeverityCritical,
			Recommendation: "Schedule class-building activities and monitor peer conflict closely.",
		}, true
	case score < stableClimateThreshold:
		return models.AnalysisInsight{
			Type:           models.InsightEmotionalClimate,
			Title:          "Emotional climate needs attention",
			Description:    fmt.Sprintf("Relationship stability score is %.2f, between %.2f and %.2f.", score, criticalClimateThreshold, stableClimateThreshold),
			Severity:       models.SeverityInfo,
			Recommendation: "Keep reinforcing positive peer interactions and check in on at-risk students.",
		}, true
	default:
		return models.AnalysisInsight{}, false
	}
}

func checkGrowthPrediction(ic *insightContext) (models.AnalysisInsight, bool) {
	leaders := make([]string, 0)
	candidates := make([]string, 0)
	for _, a := range ic.analyses {
		if a.BetweennessCentrality > 0.1 && a.PopularityScore < 0.3 && a.SociabilityScore > 0.6 {
			leaders = append(leaders, a.StudentID)
		}
		if a.IsolationRisk == models.IsolationRiskMedium && a.SociabilityScore > 0.4 {
			candidates = append(candidates, a.StudentID)
		}
	}
	if len(leaders) == 0 && len(candidates) == 0 {
		return models.AnalysisInsight{}, false
	}
	return models.AnalysisInsight{
		Type:  models.InsightGrowthPrediction,
		Title: "Students poised for social growth",
		Description: fmt.Sprintf("%d emerging leaders [%s] and %d growth candidates [%s] were identified.",
			len(leaders), strings.Join(leaders, ", "), len(candidates), strings.Join(candidates, ", ")),
		Severity:         models.SeverityInfo,
		AffectedStudents: append(append([]string(nil), leaders...), candidates...),
		Recommendation:   "Offer emerging leaders responsibility and invite growth candidates into active groups.",
	}, true
}

func checkLearningNetwork(ic *insightContext) (models.AnalysisInsight, bool) {
	covered := make(map[string]struct{})
	for _, rel := range ic.relationships {
		if rel.Type == models.RelationshipCollaboration || rel.Type == models.RelationshipTrust {
			covered[rel.FromStudentID] = struct{}{}
			covered[rel.ToStudentID] = struct{}{}
		}
	}
	uncovered := make([]string, 0)
	for _, s := range ic.roster {
		if _, ok := covered[s.ID]; !ok {
			uncovered = append(uncovered, s.ID)
		}
	}
	coverage := ratio(float64(len(ic.roster)-len(uncovered)), ic.size)
	if coverage >= learningCoverageThreshold {
		return models.AnalysisInsight{}, false
	}
	return models.AnalysisInsight{
		Type:  models.InsightLearningNetwork,
		Title: "Weak learning network",
		Description: fmt.Sprintf("Only %.0f%% of students have a collaboration or trust tie; %d students have none.",
			coverage*100, len(uncovered)),
		Severity:         models.SeverityWarning,
		AffectedStudents: uncovered,
		Recommendation:   "Assign study partners so every student has at least one collaboration or trust tie.",
	}, true
}

func percent(part, whole float64) float64 {
	return ratio(part, whole) * 100
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
