package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/classpulse/sociogram/internal/api"
	"github.com/classpulse/sociogram/internal/models"
)

var sampleQuestions = []string{"friend_q1", "collaboration_q2", "trust_q3"}

type sampleOptions struct {
	students     int
	seed         int64
	surveyID     string
	classID      string
	responseRate float64
	pretty       bool
}

func newSampleCmd() *cobra.Command {
	opts := &sampleOptions{}
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print a synthetic analysis request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.students < 0 {
				return fmt.Errorf("--students must not be negative")
			}
			if opts.responseRate < 0 || opts.responseRate > 1 {
				return fmt.Errorf("--response-rate must be within [0,1]")
			}
			req := generateSample(*opts)
			return writeJSON(cmd.OutOrStdout(), api.EncodeRequestBody(req), opts.pretty)
		},
	}
	cmd.Flags().IntVarP(&opts.students, "students", "n", 24, "Roster size")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "Random seed; equal seeds give equal output")
	cmd.Flags().StringVar(&opts.surveyID, "survey", "sample-survey", "Survey ID")
	cmd.Flags().StringVar(&opts.classID, "class", "sample-class", "Class ID")
	cmd.Flags().Float64Var(&opts.responseRate, "response-rate", 0.85, "Share of students who respond")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the JSON output")
	return cmd
}

// generateSample builds a roster split into friendship clusters of about
// five, with most nominations staying inside a student's own cluster.
func generateSample(opts sampleOptions) models.AnalysisRequest {
	rng := rand.New(rand.NewSource(opts.seed))
	submitted := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

	req := models.AnalysisRequest{
		SurveyID:    opts.surveyID,
		ClassID:     opts.classID,
		SurveyTitle: "Synthetic class survey",
		Students:    make([]models.Student, 0, opts.students),
		Responses:   make([]models.SurveyResponse, 0, opts.students),
	}
	genders := []string{"female", "male"}
	for i := 0; i < opts.students; i++ {
		req.Students = append(req.Students, models.Student{
			ID:      fmt.Sprintf("st-%03d", i+1),
			Name:    fmt.Sprintf("Student %d", i+1),
			Number:  i + 1,
			Gender:  genders[rng.Intn(len(genders))],
			ClassID: opts.classID,
		})
	}

	const clusterSize = 5
	for i, student := range req.Students {
		if rng.Float64() >= opts.responseRate {
			continue
		}
		resp := models.SurveyResponse{
			ID:           fmt.Sprintf("resp-%03d", i+1),
			SurveyID:     opts.surveyID,
			RespondentID: student.ID,
			SubmittedAt:  submitted.Add(time.Duration(i) * time.Minute),
		}
		for _, question := range sampleQuestions {
			resp.Answers = append(resp.Answers, models.Answer{
				QuestionID:  question,
				Nominations: pickNominees(rng, req.Students, i, clusterSize),
			})
		}
		req.Responses = append(req.Responses, resp)
	}
	return req
}

func pickNominees(rng *rand.Rand, roster []models.Student, self, clusterSize int) []string {
	if len(roster) < 2 {
		return []string{}
	}
	want := 1 + rng.Intn(3)
	picked := make(map[int]struct{}, want)
	out := make([]string, 0, want)
	start := (self / clusterSize) * clusterSize
	for attempts := 0; len(out) < want && attempts < want*10; attempts++ {
		var idx int
		if rng.Float64() < 0.8 {
			idx = start + rng.Intn(clusterSize)
		} else {
			idx = rng.Intn(len(roster))
		}
		if idx == self || idx >= len(roster) {
			continue
		}
		if _, dup := picked[idx]; dup {
			continue
		}
		picked[idx] = struct{}{}
		out = append(out, roster[idx].ID)
	}
	return out
}
