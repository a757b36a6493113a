package models

import "time"

// AnalysisRequest is the input of one analysis run.
type AnalysisRequest struct {
	SurveyID    string           `json:"surveyId"`
	ClassID     string           `json:"classId,omitempty"`
	SurveyTitle string           `json:"surveyTitle,omitempty"`
	Students    []Student        `json:"students"`
	Responses   []SurveyResponse `json:"responses"`
}

// NetworkData groups the graph-level outputs of a run.
type NetworkData struct {
	Relationships []StudentRelationship `json:"relationships"`
	Analyses      []NetworkAnalysis     `json:"analyses"`
	Summary       ClassNetworkSummary   `json:"summary"`
}

// AnalysisResult is returned to callers and persisted as a snapshot.
type AnalysisResult struct {
	AnalysisID      string            `json:"analysisId"`
	SurveyID        string            `json:"surveyId"`
	ClassID         string            `json:"classId,omitempty"`
	SurveyTitle     string            `json:"surveyTitle,omitempty"`
	TotalResponses  int               `json:"totalResponses"`
	ResponseRate    float64           `json:"responseRate"`
	NetworkData     NetworkData       `json:"networkData"`
	Insights        []AnalysisInsight `json:"insights"`
	Recommendations []Recommendation  `json:"recommendations"`
	GeneratedAt     time.Time         `json:"generatedAt"`
}

// SnapshotQuery filters stored analysis history.
type SnapshotQuery struct {
	ClassID string
	Limit   int
}

// StudentTrend summarises how a student's network position evolved across snapshots.
type StudentTrend struct {
	StudentID     string    `json:"studentId"`
	Snapshots     int       `json:"snapshots"`
	IsolatedCount int       `json:"isolatedCount"`
	HighRiskCount int       `json:"highRiskCount"`
	PopularCount  int       `json:"popularCount"`
	BridgeCount   int       `json:"bridgeCount"`
	Persistent    bool      `json:"persistentIsolation"`
	LastSeen      time.Time `json:"lastSeen"`
}
