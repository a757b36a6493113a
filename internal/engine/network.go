package engine

import (
	"math"

	"github.com/classpulse/sociogram/internal/models"
)

// Isolation thresholds on total connections divided by roster size.
const (
	highIsolationRatio   = 0.10
	mediumIsolationRatio = 0.25
	popularityScale      = 0.3
)

// AnalyzeStudentNetwork computes one student's connection counts, approximate
// centralities, isolation risk, popularity and sociability. It is a pure
// function of its arguments.
func AnalyzeStudentNetwork(studentID string, relationships []models.StudentRelationship, roster []models.Student) models.NetworkAnalysis {
	return analyzeStudent(buildNetwork(relationships), studentID, roster)
}

// AnalyzeStudents runs AnalyzeStudentNetwork for every roster member, in roster order.
func AnalyzeStudents(relationships []models.StudentRelationship, roster []models.Student) []models.NetworkAnalysis {
	net := buildNetwork(relationships)
	analyses := make([]models.NetworkAnalysis, 0, len(roster))
	for _, student := range roster {
		analyses = append(analyses, analyzeStudent(net, student.ID, roster))
	}
	return analyses
}

func analyzeStudent(net *network, studentID string, roster []models.Student) models.NetworkAnalysis {
	size := float64(len(roster))
	total := net.degree(studentID)
	incoming := net.incoming[studentID]
	outgoing := net.outgoing[studentID]

	return models.NetworkAnalysis{
		StudentID:             studentID,
		DegreeCentrality:      degreeCentrality(total, len(roster)),
		BetweennessCentrality: betweennessCentrality(net, studentID, len(roster)),
		ClosenessCentrality:   closenessCentrality(net, studentID, roster),
		EigenvectorCentrality: eigenvectorCentrality(net, studentID, len(roster)),
		TotalConnections:      total,
		IncomingConnections:   incoming,
		OutgoingConnections:   outgoing,
		ReciprocalConnections: net.reciprocal[studentID],
		IsolationRisk:         classifyIsolation(total, len(roster)),
		PopularityScore:       math.Min(1, ratio(float64(incoming), size*popularityScale)),
		SociabilityScore:      sociability(total, outgoing),
	}
}

// degreeCentrality is capped at 1; peers outside the roster still count as
// neighbours but cannot push the score past a fully connected student.
func degreeCentrality(neighbors, rosterSize int) float64 {
	if rosterSize <= 1 {
		return 0
	}
	return math.Min(1, float64(neighbors)/float64(rosterSize-1))
}

// betweennessCentrality counts neighbour pairs bridged by the student,
// normalised by neighbours × (roster − 2) with the denominator floored at 1.
func betweennessCentrality(net *network, studentID string, rosterSize int) float64 {
	bridges := net.bridgePairs(studentID)
	den := float64(net.degree(studentID) * (rosterSize - 2))
	if den < 1 {
		den = 1
	}
	return float64(bridges) / den
}

// closenessCentrality divides (roster − 1) by the summed BFS distances to every
// other roster member. An unreachable member contributes +Inf, which drives
// the score to zero.
func closenessCentrality(net *network, studentID string, roster []models.Student) float64 {
	if len(roster) <= 1 {
		return 0
	}
	dist := net.distances(studentID)
	sum := 0.0
	for _, other := range roster {
		if other.ID == studentID {
			continue
		}
		sum += distanceTo(dist, other.ID)
	}
	if sum == 0 || math.IsInf(sum, 1) {
		return 0
	}
	return float64(len(roster)-1) / sum
}

func eigenvectorCentrality(net *network, studentID string, rosterSize int) float64 {
	if rosterSize == 0 {
		return 0
	}
	sum := 0
	for _, peer := range net.neighbors(studentID) {
		sum += net.degree(peer)
	}
	return float64(sum) / float64(rosterSize*rosterSize)
}

func classifyIsolation(total, rosterSize int) models.IsolationRisk {
	r := ratio(float64(total), float64(rosterSize))
	switch {
	case r < highIsolationRatio:
		return models.IsolationRiskHigh
	case r < mediumIsolationRatio:
		return models.IsolationRiskMedium
	default:
		return models.IsolationRiskLow
	}
}

func sociability(total, outgoing int) float64 {
	if total == 0 {
		return 0
	}
	den := total
	if outgoing > den {
		den = outgoing
	}
	return float64(outgoing) / float64(den)
}
