// Package commentary turns a class network summary into a short narrative
// for teachers using an OpenAI-compatible chat completion API.
package commentary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/classpulse/sociogram/internal/models"
)

const (
	defaultModel = "gpt-4o-mini"

	systemPrompt = "You are an experienced school counsellor. Summarise classroom peer-network " +
		"analysis results for a teacher in plain language, in at most five sentences. " +
		"Refer to students by ID only and do not speculate beyond the data."
)

// Config carries the credentials and model settings for the commentary client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client generates commentary through the chat completions endpoint.
type Client struct {
	client *openai.Client
	cfg    Config
	logger *slog.Logger
}

// NewClient builds a Client from cfg. An API key is required.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("commentary: api key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Summarize asks the model for a narrative of summary and insights.
func (c *Client) Summarize(ctx context.Context, summary models.ClassNetworkSummary, insights []models.AnalysisInsight) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(summary, insights)},
		},
		Temperature: c.cfg.Temperature,
	}
	if c.cfg.MaxTokens > 0 {
		req.MaxCompletionTokens = c.cfg.MaxTokens
	}

	c.logger.Debug("requesting commentary", slog.String("model", c.cfg.Model), slog.String("survey_id", summary.SurveyID))
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt renders the summary metrics and insights as the user message.
func BuildPrompt(summary models.ClassNetworkSummary, insights []models.AnalysisInsight) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total students: %d\n", summary.TotalStudents)
	fmt.Fprintf(&b, "Total relationships: %d\n", summary.TotalRelationships)
	fmt.Fprintf(&b, "Network density: %.3f\n", summary.NetworkDensity)
	fmt.Fprintf(&b, "Average path length: %.2f\n", summary.AveragePathLength)
	fmt.Fprintf(&b, "Clustering coefficient: %.2f\n", summary.ClusteringCoefficient)
	fmt.Fprintf(&b, "Groups: %d\n", len(summary.Groups))
	fmt.Fprintf(&b, "Isolated students: %s\n", listOrNone(summary.IsolatedStudents))
	fmt.Fprintf(&b, "Popular students: %s\n", listOrNone(summary.PopularStudents))
	fmt.Fprintf(&b, "Bridge students: %s\n", listOrNone(summary.BridgeStudents))
	if len(insights) > 0 {
		b.WriteString("Insights:\n")
		for _, in := range insights {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", in.Severity, in.Title, in.Description)
		}
	}
	return b.String()
}

func listOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
