package engine

import (
	"testing"

	"github.com/classpulse/sociogram/internal/models"
)

func TestAnalyzeClassNetworkEmptyResponses(t *testing.T) {
	students := roster("A", "B", "C", "D", "E")
	summary := AnalyzeClassNetwork("s1", "c1", students, nil)

	if summary.TotalStudents != 5 || summary.TotalRelationships != 0 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	if summary.NetworkDensity != 0 || summary.AveragePathLength != 0 || summary.ClusteringCoefficient != 0 {
		t.Fatalf("expected zero metrics, got %+v", summary)
	}
	if len(summary.Groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(summary.Groups))
	}
	if len(summary.IsolatedStudents) != 5 {
		t.Fatalf("expected all students isolated, got %v", summary.IsolatedStudents)
	}
}

func TestAnalyzeClassNetworkEmptyRoster(t *testing.T) {
	summary := AnalyzeClassNetwork("s1", "", nil, nil)
	if summary.TotalStudents != 0 || summary.NetworkDensity != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Groups == nil || summary.IsolatedStudents == nil || summary.PopularStudents == nil || summary.BridgeStudents == nil {
		t.Fatalf("expected empty, non-nil lists")
	}
}

func TestAnalyzeClassNetworkFullyConnected(t *testing.T) {
	ids := []string{"A", "B", "C", "D"}
	students := roster(ids...)
	rels := complete(models.RelationshipFriend, ids...)

	summary := AnalyzeClassNetwork("s1", "c1", students, rels)
	if !almostEqual(summary.ClusteringCoefficient, 1) {
		t.Fatalf("expected clustering 1.0, got %f", summary.ClusteringCoefficient)
	}
	if !almostEqual(summary.NetworkDensity, 1) {
		t.Fatalf("expected density 1.0, got %f", summary.NetworkDensity)
	}
	if !almostEqual(summary.AveragePathLength, 1) {
		t.Fatalf("expected average path length 1, got %f", summary.AveragePathLength)
	}
	if len(summary.IsolatedStudents) != 0 {
		t.Fatalf("expected no isolated students, got %v", summary.IsolatedStudents)
	}
	if len(summary.Groups) != 1 {
		t.Fatalf("expected a single group, got %d", len(summary.Groups))
	}
	group := summary.Groups[0]
	if group.ID != "group-1" || len(group.Members) != 4 {
		t.Fatalf("unexpected group: %+v", group)
	}
	if group.Cohesion != 1 || group.Type != models.GroupTypeFriend || group.AverageStrength != 1 {
		t.Fatalf("unexpected group metrics: %+v", group)
	}

	for _, a := range AnalyzeStudents(rels, students) {
		if a.IsolationRisk == models.IsolationRiskHigh {
			t.Fatalf("expected no high-risk students, got %s", a.StudentID)
		}
	}
}

func TestAnalyzeClassNetworkComponents(t *testing.T) {
	students := roster("A", "B", "C", "D", "E", "F")
	rels := []models.StudentRelationship{
		edge("A", "B", models.RelationshipFriend),
		edge("C", "D", models.RelationshipCollaboration),
		edge("D", "E", models.RelationshipCollaboration),
		edge("E", "C", models.RelationshipCollaboration),
		edge("F", "X", models.RelationshipFriend),
	}

	summary := AnalyzeClassNetwork("s1", "c1", students, rels)
	if summary.TotalRelationships != 5 {
		t.Fatalf("expected edges to unknown students to be counted, got %d", summary.TotalRelationships)
	}
	if len(summary.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %+v", summary.Groups)
	}
	pair, study := summary.Groups[0], summary.Groups[1]
	if pair.Type != models.GroupTypeIsolatedPair || len(pair.Members) != 2 {
		t.Fatalf("unexpected first group: %+v", pair)
	}
	if study.Type != models.GroupTypeStudy || len(study.Members) != 3 || study.ID != "group-2" {
		t.Fatalf("unexpected second group: %+v", study)
	}
	if !almostEqual(study.Cohesion, 1) {
		t.Fatalf("expected triangle cohesion 1, got %f", study.Cohesion)
	}
	if !almostEqual(pair.Cohesion, 1) {
		t.Fatalf("expected pair cohesion 1, got %f", pair.Cohesion)
	}
}

func TestAnalyzeClassNetworkRoles(t *testing.T) {
	students := roster("H", "L1", "L2", "L3")
	rels := []models.StudentRelationship{
		edge("H", "L1", models.RelationshipFriend),
		edge("H", "L2", models.RelationshipFriend),
		edge("H", "L3", models.RelationshipFriend),
	}
	summary := AnalyzeClassNetwork("s1", "c1", students, rels)

	if len(summary.BridgeStudents) != 1 || summary.BridgeStudents[0] != "H" {
		t.Fatalf("expected H as the only bridge, got %v", summary.BridgeStudents)
	}
	if len(summary.IsolatedStudents) != 3 {
		t.Fatalf("expected leaves isolated, got %v", summary.IsolatedStudents)
	}
	if !almostEqual(summary.AveragePathLength, 1.5) {
		t.Fatalf("expected average path length 1.5, got %f", summary.AveragePathLength)
	}
	if summary.ClusteringCoefficient != 0 {
		t.Fatalf("expected clustering 0, got %f", summary.ClusteringCoefficient)
	}

	popular := AnalyzeClassNetwork("s1", "c1", roster("P", "A", "B", "C", "D"), []models.StudentRelationship{
		edge("A", "P", models.RelationshipFriend),
		edge("B", "P", models.RelationshipFriend),
		edge("C", "P", models.RelationshipFriend),
		edge("D", "P", models.RelationshipFriend),
	})
	if len(popular.PopularStudents) != 1 || popular.PopularStudents[0] != "P" {
		t.Fatalf("expected P popular, got %v", popular.PopularStudents)
	}
}
