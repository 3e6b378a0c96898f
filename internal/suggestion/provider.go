// Package suggestion proposes troubleshooting steps and knowledge base
// keywords for a ticket. Providers never return errors: any failure is logged
// and reported as a nil suggestion.
package suggestion

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Outcomes reported to the Recorder.
const (
	OutcomeFallback  = "fallback"
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Provider produces a suggestion for ticket, or nil when none is available.
type Provider interface {
	Suggest(ctx context.Context, ticket domain.Ticket) *domain.Suggestion
}

// Recorder counts provider outcomes.
type Recorder interface {
	RecordSuggestion(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordSuggestion(string) {}

// New picks the provider for cfg: the fixed fallback when no API key is set,
// the Gemini client otherwise.
func New(cfg config.SuggestionConfig, client *http.Client, logger *zap.Logger, recorder Recorder) Provider {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.APIKey == "" {
		logger.Warn("suggestion API key not configured; serving fallback suggestions")
		return Fallback{recorder: recorder}
	}
	return NewGemini(cfg, client, logger, recorder)
}

// Fallback returns the same canned suggestion for every ticket.
type Fallback struct {
	recorder Recorder
}

func (f Fallback) Suggest(_ context.Context, _ domain.Ticket) *domain.Suggestion {
	if f.recorder != nil {
		f.recorder.RecordSuggestion(OutcomeFallback)
	}
	return FallbackSuggestion()
}

// FallbackSuggestion returns a fresh copy of the canned suggestion.
func FallbackSuggestion() *domain.Suggestion {
	return &domain.Suggestion{
		Solutions: []string{
			"Restart the computer.",
			"Check network cable connection.",
			"Clear browser cache and cookies.",
		},
		Keywords: []string{"VPN", "Connection Error", "Windows 11", "Network"},
	}
}
