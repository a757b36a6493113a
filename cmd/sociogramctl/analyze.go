package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/classpulse/sociogram/internal/api"
	"github.com/classpulse/sociogram/internal/engine"
	"github.com/classpulse/sociogram/internal/models"
	"github.com/classpulse/sociogram/internal/utils"
)

type analyzeOptions struct {
	file    string
	rules   string
	remote  string
	pretty  bool
	timeout time.Duration
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a network analysis over a JSON request",
		Long: "Reads an analysis request (the HTTP API body) from --file or stdin and prints the result.\n" +
			"With --remote the request is sent to a running engine over gRPC.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "-", "Request file, - for stdin")
	cmd.Flags().StringVar(&opts.rules, "rules", "", "Insight rule pack (YAML) for offline runs")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "gRPC address of a sociogram engine")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the JSON output")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall timeout")
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	data, err := readInput(cmd.InOrStdin(), opts.file)
	if err != nil {
		return err
	}
	req, err := api.DecodeAnalysisRequest(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	var result models.AnalysisResult
	if opts.remote != "" {
		result, err = analyzeRemote(ctx, opts.remote, req)
	} else {
		result, err = analyzeLocal(ctx, cmd, opts.rules, req)
	}
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result, opts.pretty)
}

func analyzeLocal(ctx context.Context, cmd *cobra.Command, rulesPath string, req models.AnalysisRequest) (models.AnalysisResult, error) {
	level, _ := cmd.Flags().GetString("log-level")
	logger := utils.NewLoggerTo(cmd.ErrOrStderr(), level, false)

	rules, err := engine.NewRuleEngine(rulesPath, logger)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	return engine.NewPipeline(logger, rules, nil, 0).Analyze(ctx, req)
}

func analyzeRemote(ctx context.Context, addr string, req models.AnalysisRequest) (models.AnalysisResult, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	return api.NewNetworkAnalyzerClient(conn).AnalyzeSurvey(ctx, req)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
