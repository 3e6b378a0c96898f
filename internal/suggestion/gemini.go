package suggestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const maxResponseBytes = 1 << 20

// Gemini calls the generateContent REST endpoint and asks for structured JSON.
type Gemini struct {
	apiKey   string
	model    string
	baseURL  string
	timeout  time.Duration
	client   *http.Client
	logger   *zap.Logger
	recorder Recorder
}

func NewGemini(cfg config.SuggestionConfig, client *http.Client, logger *zap.Logger, recorder Recorder) *Gemini {
	if client == nil {
		client = &http.Client{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Gemini{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		timeout:  cfg.Timeout(),
		client:   client,
		logger:   logger,
		recorder: recorder,
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// requestSchema uses the OpenAPI subset generateContent accepts.
var requestSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"solutions": map[string]any{
			"type":        "ARRAY",
			"description": "A list of 2-3 brief, actionable troubleshooting steps or solutions for the user to try.",
			"items":       map[string]any{"type": "STRING"},
		},
		"keywords": map[string]any{
			"type":        "ARRAY",
			"description": "A list of 3-5 relevant keywords for searching a knowledge base.",
			"items":       map[string]any{"type": "STRING"},
		},
	},
	"required": []string{"solutions", "keywords"},
}

// Prompt renders the model prompt for ticket.
func Prompt(ticket domain.Ticket) string {
	return fmt.Sprintf(`Analyze the following IT helpdesk ticket and provide potential solutions and relevant knowledge base keywords.
Ticket Title: %q
Ticket Description: %q
Ticket Category: %q`, ticket.Title, ticket.Description, string(ticket.Category))
}

func (g *Gemini) Suggest(ctx context.Context, ticket domain.Ticket) *domain.Suggestion {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.generate(ctx, Prompt(ticket))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			g.recorder.RecordSuggestion(OutcomeCancelled)
			g.logger.Debug("suggestion request cancelled", zap.String("ticket_id", ticket.ID))
			return nil
		}
		g.recorder.RecordSuggestion(OutcomeError)
		g.logger.Warn("suggestion request failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return nil
	}

	suggestion, err := ParseResponse(text)
	if err != nil {
		g.recorder.RecordSuggestion(OutcomeInvalid)
		g.logger.Warn("suggestion response rejected", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return nil
	}
	g.recorder.RecordSuggestion(OutcomeOK)
	return suggestion
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   requestSchema,
		},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generateContent returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode generateContent response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("generateContent returned no candidates")
	}
	var sb strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
