package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/classpulse/sociogram/internal/models"
	"github.com/classpulse/sociogram/internal/utils"
)

var validate = newValidator()

// newValidator reports JSON field names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// AnalysisRequestBody is the JSON body of an analysis request.
type AnalysisRequestBody struct {
	SurveyID    string         `json:"surveyId" validate:"required,max=128"`
	ClassID     string         `json:"classId,omitempty" validate:"max=128"`
	SurveyTitle string         `json:"surveyTitle,omitempty" validate:"max=256"`
	Students    []StudentBody  `json:"students" validate:"required,dive"`
	Responses   []ResponseBody `json:"responses" validate:"required"`
}

// StudentBody is a roster entry. Active defaults to true when omitted.
type StudentBody struct {
	ID      string `json:"id" validate:"required,max=128"`
	Name    string `json:"name,omitempty" validate:"max=256"`
	Number  int    `json:"number,omitempty" validate:"gte=0"`
	Gender  string `json:"gender,omitempty" validate:"max=32"`
	ClassID string `json:"classId,omitempty"`
	Active  *bool  `json:"active,omitempty"`
}

// ResponseBody is one submitted form. Incomplete responses are accepted and
// skipped during extraction rather than rejected.
type ResponseBody struct {
	ID           string       `json:"id,omitempty"`
	SurveyID     string       `json:"surveyId,omitempty"`
	RespondentID string       `json:"respondentId"`
	Answers      []AnswerBody `json:"answers"`
	SubmittedAt  string       `json:"submittedAt,omitempty"`
}

// AnswerBody keeps selectedStudents raw so a non-list value marks only this
// answer as malformed.
type AnswerBody struct {
	QuestionID       string          `json:"questionId"`
	SelectedStudents json.RawMessage `json:"selectedStudents"`
}

// SuccessEnvelope wraps successful responses.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ErrorEnvelope is the body of every 4xx/5xx response.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// DecodeAnalysisRequest parses and validates a JSON analysis request.
func DecodeAnalysisRequest(data []byte) (models.AnalysisRequest, error) {
	var body AnalysisRequestBody
	if err := json.Unmarshal(data, &body); err != nil {
		return models.AnalysisRequest{}, utils.NewAppError("api.DecodeAnalysisRequest", "request body is not valid JSON", fmt.Errorf("%w: %v", utils.ErrInvalidRequest, err))
	}
	return body.ToModel()
}

// ToModel validates the body and converts it to the domain request.
func (b AnalysisRequestBody) ToModel() (models.AnalysisRequest, error) {
	if err := validate.Struct(b); err != nil {
		return models.AnalysisRequest{}, utils.NewAppError("api.ToModel", validationMessage(err), fmt.Errorf("%w: %v", utils.ErrInvalidRequest, err))
	}

	req := models.AnalysisRequest{
		SurveyID:    strings.TrimSpace(b.SurveyID),
		ClassID:     strings.TrimSpace(b.ClassID),
		SurveyTitle: b.SurveyTitle,
		Students:    make([]models.Student, 0, len(b.Students)),
		Responses:   make([]models.SurveyResponse, 0, len(b.Responses)),
	}
	for _, s := range b.Students {
		inactive := false
		if s.Active != nil {
			inactive = !*s.Active
		}
		classID := s.ClassID
		if classID == "" {
			classID = req.ClassID
		}
		req.Students = append(req.Students, models.Student{
			ID:       strings.TrimSpace(s.ID),
			Name:     s.Name,
			Number:   s.Number,
			Gender:   s.Gender,
			ClassID:  classID,
			Inactive: inactive,
		})
	}
	for _, r := range b.Responses {
		req.Responses = append(req.Responses, r.toModel(req.SurveyID))
	}
	return req, nil
}

func (r ResponseBody) toModel(surveyID string) models.SurveyResponse {
	resp := models.SurveyResponse{
		ID:           r.ID,
		SurveyID:     r.SurveyID,
		RespondentID: r.RespondentID,
		Answers:      make([]models.Answer, 0, len(r.Answers)),
	}
	if resp.SurveyID == "" {
		resp.SurveyID = surveyID
	}
	if r.SubmittedAt != "" {
		if at, err := utils.ParseTimestamp(r.SubmittedAt); err == nil {
			resp.SubmittedAt = at
		}
	}
	for _, a := range r.Answers {
		nominations, ok := decodeNominations(a.SelectedStudents)
		resp.Answers = append(resp.Answers, models.Answer{
			QuestionID:  a.QuestionID,
			Nominations: nominations,
			Malformed:   !ok,
		})
	}
	return resp
}

// decodeNominations reports false for anything other than a list of strings.
func decodeNominations(raw json.RawMessage) ([]string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(trimmed, &ids); err != nil {
		return nil, false
	}
	return ids, true
}

// EncodeRequestBody converts a domain request back to its wire form.
func EncodeRequestBody(req models.AnalysisRequest) AnalysisRequestBody {
	body := AnalysisRequestBody{
		SurveyID:    req.SurveyID,
		ClassID:     req.ClassID,
		SurveyTitle: req.SurveyTitle,
		Students:    make([]StudentBody, 0, len(req.Students)),
		Responses:   make([]ResponseBody, 0, len(req.Responses)),
	}
	for _, s := range req.Students {
		active := !s.Inactive
		body.Students = append(body.Students, StudentBody{
			ID: s.ID, Name: s.Name, Number: s.Number, Gender: s.Gender, ClassID: s.ClassID, Active: &active,
		})
	}
	for _, r := range req.Responses {
		rb := ResponseBody{ID: r.ID, SurveyID: r.SurveyID, RespondentID: r.RespondentID, Answers: make([]AnswerBody, 0, len(r.Answers))}
		if !r.SubmittedAt.IsZero() {
			rb.SubmittedAt = r.SubmittedAt.UTC().Format(time.RFC3339)
		}
		for _, a := range r.Answers {
			raw := json.RawMessage("null")
			if !a.Malformed {
				raw, _ = json.Marshal(append([]string{}, a.Nominations...))
			}
			rb.Answers = append(rb.Answers, AnswerBody{QuestionID: a.QuestionID, SelectedStudents: raw})
		}
		body.Responses = append(body.Responses, rb)
	}
	return body
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fieldPath(fe.Namespace()), fe.Tag()))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
