package models

import "time"

// RelationshipType classifies a directed nomination edge.
type RelationshipType string

const (
	RelationshipFriend        RelationshipType = "friend"
	RelationshipCollaboration RelationshipType = "collaboration"
	RelationshipTrust         RelationshipType = "trust"
	RelationshipConflict      RelationshipType = "conflict"
)

// StudentRelationship is a directed, typed edge derived from a nomination.
// (SurveyID, FromStudentID, ToStudentID, Type) is unique within one batch.
type StudentRelationship struct {
	SurveyID      string           `json:"surveyId"`
	FromStudentID string           `json:"fromStudentId"`
	ToStudentID   string           `json:"toStudentId"`
	Type          RelationshipType `json:"relationshipType"`
	// Strength is always 1 at creation; reserved for weighting.
	Strength   int       `json:"strength"`
	Reciprocal bool      `json:"isReciprocal"`
	CreatedAt  time.Time `json:"createdAt"`
}
