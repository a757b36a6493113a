package models

// Severity captures how urgently an insight needs attention.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// InsightType tags the heuristic that produced an insight.
type InsightType string

const (
	InsightIsolationRisk           InsightType = "isolation_risk"
	InsightLowDensity              InsightType = "low_density"
	InsightGenderGap               InsightType = "gender_gap"
	InsightPopularityConcentration InsightType = "popularity_concentration"
	InsightSubgroupFormation       InsightType = "subgroup_formation"
	InsightCliqueFormation         InsightType = "clique_formation"
	InsightCommunicationImbalance  InsightType = "communication_imbalance"
	InsightEmotionalClimate        InsightType = "emotional_climate"
	InsightGrowthPrediction        InsightType = "growth_prediction"
	InsightLearningNetwork         InsightType = "learning_network"
)

// AnalysisInsight is a human-readable finding produced by one heuristic check.
type AnalysisInsight struct {
	ID               string      `json:"id"`
	Type             InsightType `json:"type"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Severity         Severity    `json:"severity"`
	AffectedStudents []string    `json:"affectedStudents,omitempty"`
	Recommendation   string      `json:"recommendation,omitempty"`
}

// RecommendationType categorises an action plan.
type RecommendationType string

const (
	RecommendationIntervention RecommendationType = "intervention"
	RecommendationGrouping     RecommendationType = "grouping"
	RecommendationMonitoring   RecommendationType = "monitoring"
	RecommendationSupport      RecommendationType = "support"
)

// Priority orders recommendations for the teacher.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Recommendation is a structured intervention plan.
type Recommendation struct {
	Type           RecommendationType `json:"type"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Priority       Priority           `json:"priority"`
	TargetStudents []string           `json:"targetStudents"`
	ActionSteps    []string           `json:"actionSteps"`
}
