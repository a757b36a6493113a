package models

// IsolationRisk is the heuristic risk tier derived from a student's connection ratio.
type IsolationRisk string

const (
	IsolationRiskLow    IsolationRisk = "low"
	IsolationRiskMedium IsolationRisk = "medium"
	IsolationRiskHigh   IsolationRisk = "high"
)

// NetworkAnalysis captures one student's position in the class network.
// Centrality values are the simplified approximations, not textbook measures.
type NetworkAnalysis struct {
	StudentID             string        `json:"studentId"`
	DegreeCentrality      float64       `json:"degreeCentrality"`
	BetweennessCentrality float64       `json:"betweennessCentrality"`
	ClosenessCentrality   float64       `json:"closenessCentrality"`
	EigenvectorCentrality float64       `json:"eigenvectorCentrality"`
	TotalConnections      int           `json:"totalConnections"`
	IncomingConnections   int           `json:"incomingConnections"`
	OutgoingConnections   int           `json:"outgoingConnections"`
	ReciprocalConnections int           `json:"reciprocalConnections"`
	IsolationRisk         IsolationRisk `json:"isolationRisk"`
	PopularityScore       float64       `json:"popularityScore"`
	SociabilityScore      float64       `json:"sociabilityScore"`
}

// GroupType is the inferred character of a connected component.
type GroupType string

const (
	GroupTypeFriend       GroupType = "friend_group"
	GroupTypeStudy        GroupType = "study_group"
	GroupTypeIsolatedPair GroupType = "isolated_pair"
	GroupTypeClique       GroupType = "clique"
)

// StudentGroup is a connected component of two or more students.
type StudentGroup struct {
	ID              string    `json:"id"`
	Members         []string  `json:"studentIds"`
	Type            GroupType `json:"groupType"`
	Cohesion        float64   `json:"cohesionScore"`
	AverageStrength float64   `json:"averageStrength"`
}

// ClassNetworkSummary aggregates class-wide network metrics for one run.
type ClassNetworkSummary struct {
	SurveyID              string         `json:"surveyId"`
	ClassID               string         `json:"classId,omitempty"`
	TotalStudents         int            `json:"totalStudents"`
	TotalRelationships    int            `json:"totalRelationships"`
	NetworkDensity        float64        `json:"networkDensity"`
	AveragePathLength     float64        `json:"averagePathLength"`
	ClusteringCoefficient float64        `json:"clusteringCoefficient"`
	Groups                []StudentGroup `json:"identifiedGroups"`
	IsolatedStudents      []string       `json:"isolatedStudents"`
	PopularStudents       []string       `json:"popularStudents"`
	BridgeStudents        []string       `json:"bridgeStudents"`
	AICommentary          string         `json:"aiCommentary,omitempty"`
}
