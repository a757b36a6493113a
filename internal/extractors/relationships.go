package extractors

import (
	"strings"

	"github.com/classpulse/sociogram/internal/models"
)

// Stats counts what ProcessResponsesWithStats emitted and dropped.
type Stats struct {
	Relationships      int
	SkippedResponses   int
	SkippedAnswers     int
	SkippedNominations int
}

// typeKeywords is evaluated in order; the first substring match wins.
var typeKeywords = []struct {
	keyword string
	relType models.RelationshipType
}{
	{"friend", models.RelationshipFriend},
	{"collaboration", models.RelationshipCollaboration},
	{"trust", models.RelationshipTrust},
	{"conflict", models.RelationshipConflict},
}

// InferRelationshipType maps a question identifier to a relationship type.
// Identifiers that contain none of the known keywords default to friend.
func InferRelationshipType(questionID string) models.RelationshipType {
	id := strings.ToLower(questionID)
	for _, kw := range typeKeywords {
		if strings.Contains(id, kw.keyword) {
			return kw.relType
		}
	}
	return models.RelationshipFriend
}

// ProcessResponses converts survey responses into directed relationship edges
// with reciprocity marked.
func ProcessResponses(responses []models.SurveyResponse) []models.StudentRelationship {
	edges, _ := ProcessResponsesWithStats(responses)
	return edges
}

// ProcessResponsesWithStats is ProcessResponses plus counters for skipped input.
// Malformed items are skipped individually; the batch always completes.
func ProcessResponsesWithStats(responses []models.SurveyResponse) ([]models.StudentRelationship, Stats) {
	var stats Stats
	edges := make([]models.StudentRelationship, 0)
	seen := make(map[edgeKey]struct{})

	for _, resp := range responses {
		from := strings.TrimSpace(resp.RespondentID)
		if from == "" {
			stats.SkippedResponses++
			continue
		}
		for _, answer := range resp.Answers {
			if answer.Malformed {
				stats.SkippedAnswers++
				continue
			}
			relType := InferRelationshipType(answer.QuestionID)
			for _, nominee := range answer.Nominations {
				to := strings.TrimSpace(nominee)
				if to == "" || to == from {
					stats.SkippedNominations++
					continue
				}
				key := edgeKey{from: from, to: to, relType: relType}
				if _, dup := seen[key]; dup {
					stats.SkippedNominations++
					continue
				}
				seen[key] = struct{}{}
				edges = append(edges, models.StudentRelationship{
					SurveyID:      resp.SurveyID,
					FromStudentID: from,
					ToStudentID:   to,
					Type:          relType,
					Strength:      1,
					CreatedAt:     resp.SubmittedAt,
				})
			}
		}
	}

	marked := MarkReciprocal(edges)
	stats.Relationships = len(marked)
	return marked, stats
}

// MarkReciprocal returns a copy of edges where every edge whose mirror
// (same type, reversed direction) is present has Reciprocal set.
func MarkReciprocal(edges []models.StudentRelationship) []models.StudentRelationship {
	lookup := make(map[edgeKey]struct{}, len(edges))
	for _, e := range edges {
		lookup[edgeKey{from: e.FromStudentID, to: e.ToStudentID, relType: e.Type}] = struct{}{}
	}

	out := make([]models.StudentRelationship, len(edges))
	for i, e := range edges {
		_, mirrored := lookup[edgeKey{from: e.ToStudentID, to: e.FromStudentID, relType: e.Type}]
		e.Reciprocal = mirrored
		out[i] = e
	}
	return out
}

type edgeKey struct {
	from    string
	to      string
	relType models.RelationshipType
}
