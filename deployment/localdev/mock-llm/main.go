// Command mock-llm serves a canned OpenAI-compatible chat completion endpoint
// so the engine's AI commentary can be exercised without an API key.
//
// Point the engine at it with SOCIOGRAM_AI_ENABLED=true,
// SOCIOGRAM_AI_BASE_URL=http://localhost:8090/v1 and any SOCIOGRAM_AI_API_KEY.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/classpulse/sociogram/internal/utils"
)

func main() {
	var addr string
	flag.StringVar(&addr, "addr", ":8090", "Listen address")
	flag.Parse()

	logger := utils.NewLogger("info", false).With(slog.String("component", "mock-llm"))
	srv := &http.Server{
		Addr:              addr,
		Handler:           logRequests(logger, newMux()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("listening", slog.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/chat/completions", chatCompletion)
	return mux
}

// chatCompletion echoes the first line of the prompt back as commentary.
func chatCompletion(w http.ResponseWriter, r *http.Request) {
	if !enforcePost(w, r) {
		return
	}
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var prompt string
	for _, msg := range req.Messages {
		if msg.Role == openai.ChatMessageRoleUser {
			prompt = msg.Content
		}
	}
	first, _, _ := strings.Cut(strings.TrimSpace(prompt), "\n")

	writeJSON(w, openai.ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []openai.ChatCompletionChoice{{
			Index: 0,
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: "Mock commentary. " + first,
			},
			FinishReason: openai.FinishReasonStop,
		}},
	})
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("encode error", slog.Any("error", err))
	}
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
