package models

import "time"

// Student is a roster entry. It is read-only for the duration of an analysis.
// The zero value is an active student; Inactive drops them from the roster.
type Student struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Number   int    `json:"number"`
	Gender   string `json:"gender"`
	ClassID  string `json:"classId"`
	Inactive bool   `json:"inactive,omitempty"`
}

// SurveyResponse is one respondent's submitted peer-nomination form.
type SurveyResponse struct {
	ID           string    `json:"id"`
	SurveyID     string    `json:"surveyId"`
	RespondentID string    `json:"respondentId"`
	Answers      []Answer  `json:"answers"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Answer holds the peers nominated for a single question.
type Answer struct {
	QuestionID  string   `json:"questionId"`
	Nominations []string `json:"selectedStudents"`
	// Malformed marks answers whose nomination payload could not be read as a list.
	Malformed bool `json:"-"`
}

// Gender tags recognised by the gender interaction check.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)
