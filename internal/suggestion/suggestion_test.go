package suggestion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) RecordSuggestion(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func (r *countingRecorder) count(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[outcome]
}

var vpnTicket = domain.Ticket{
	ID:          "TKT-002",
	Title:       "VPN won't connect",
	Description: "The VPN client times out on login.",
	Category:    domain.TicketCategoryNetwork,
}

func geminiReply(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(body)
}

func newGeminiServer(t *testing.T, status int, body string, inspect func(*http.Request, []byte)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if inspect != nil {
			inspect(r, raw)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func geminiConfig(baseURL string) config.SuggestionConfig {
	return config.SuggestionConfig{APIKey: "test-key", Model: "gemini-2.5-flash", BaseURL: baseURL, TimeoutSeconds: 5}
}

func TestNewWithoutKeyReturnsFallback(t *testing.T) {
	rec := &countingRecorder{}
	provider := New(config.SuggestionConfig{}, nil, zap.NewNop(), rec)

	got := provider.Suggest(context.Background(), vpnTicket)
	require.NotNil(t, got)
	assert.Equal(t, []string{"Restart the computer.", "Check network cable connection.", "Clear browser cache and cookies."}, got.Solutions)
	assert.Equal(t, []string{"VPN", "Connection Error", "Windows 11", "Network"}, got.Keywords)
	assert.Equal(t, 1, rec.count(OutcomeFallback))

	// callers may mutate their copy freely
	got.Solutions[0] = "changed"
	assert.Equal(t, "Restart the computer.", FallbackSuggestion().Solutions[0])
}

func TestGeminiSuccess(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := newGeminiServer(t, http.StatusOK,
		geminiReply(`{"solutions":["Reinstall the VPN client.","Check the system clock."],"keywords":["VPN","Timeout","Authentication"]}`),
		func(r *http.Request, raw []byte) {
			gotPath = r.URL.Path
			gotKey = r.Header.Get("x-goog-api-key")
			_ = json.Unmarshal(raw, &gotBody)
		})
	rec := &countingRecorder{}
	provider := New(geminiConfig(srv.URL), srv.Client(), zap.NewNop(), rec)

	got := provider.Suggest(context.Background(), vpnTicket)
	require.NotNil(t, got)
	assert.Equal(t, []string{"Reinstall the VPN client.", "Check the system clock."}, got.Solutions)
	assert.Equal(t, []string{"VPN", "Timeout", "Authentication"}, got.Keywords)
	assert.Equal(t, 1, rec.count(OutcomeOK))

	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	genCfg := gotBody["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	prompt := gotBody["contents"].([]any)[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)
	assert.Contains(t, prompt, "VPN won't connect")
	assert.Contains(t, prompt, "The VPN client times out on login.")
	assert.Contains(t, prompt, "Network")
}

func TestGeminiFailuresBecomeNil(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		outcome string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, OutcomeError},
		{"not json envelope", http.StatusOK, `<html>`, OutcomeError},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, OutcomeError},
		{"missing keywords", http.StatusOK, geminiReply(`{"solutions":["a"]}`), OutcomeInvalid},
		{"extra key", http.StatusOK, geminiReply(`{"solutions":["a"],"keywords":["b"],"note":"x"}`), OutcomeInvalid},
		{"wrong item type", http.StatusOK, geminiReply(`{"solutions":[1],"keywords":["b"]}`), OutcomeInvalid},
		{"prose", http.StatusOK, geminiReply(`Sure! Here are some ideas.`), OutcomeInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newGeminiServer(t, tc.status, tc.body, nil)
			rec := &countingRecorder{}
			provider := New(geminiConfig(srv.URL), srv.Client(), zap.NewNop(), rec)

			assert.Nil(t, provider.Suggest(context.Background(), vpnTicket))
			assert.Equal(t, 1, rec.count(tc.outcome))
		})
	}
}

func TestGeminiUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	provider := New(geminiConfig(url), nil, zap.NewNop(), nil)
	assert.Nil(t, provider.Suggest(context.Background(), vpnTicket))
}

func TestParseResponseTrimsWhitespace(t *testing.T) {
	got, err := ParseResponse("\n  {\"solutions\":[],\"keywords\":[\"k\"]}  \n")
	require.NoError(t, err)
	assert.Empty(t, got.Solutions)
	assert.Equal(t, []string{"k"}, got.Keywords)
}

// gatedProvider blocks each call until its ticket's gate is released.
type gatedProvider struct {
	mu    sync.Mutex
	gates map[string]chan *domain.Suggestion
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{gates: map[string]chan *domain.Suggestion{}}
}

func (p *gatedProvider) gate(ticketID string) chan *domain.Suggestion {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.gates[ticketID]
	if !ok {
		ch = make(chan *domain.Suggestion, 1)
		p.gates[ticketID] = ch
	}
	return ch
}

func (p *gatedProvider) Suggest(_ context.Context, ticket domain.Ticket) *domain.Suggestion {
	return <-p.gate(ticket.ID)
}

func waitDone(t *testing.T, pending Pending) {
	t.Helper()
	select {
	case <-pending.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("suggestion fetch did not finish")
	}
}

func TestTrackerDropsStaleResponses(t *testing.T) {
	provider := newGatedProvider()
	tracker := NewTracker(context.Background(), provider)

	first := tracker.Request("u-tech-1", domain.Ticket{ID: "TKT-001"})
	second := tracker.Request("u-tech-1", domain.Ticket{ID: "TKT-002"})
	assert.Greater(t, second.Seq, first.Seq)

	state, ok := tracker.State("u-tech-1")
	require.True(t, ok)
	assert.Equal(t, "TKT-002", state.TicketID)
	assert.True(t, state.Loading)

	// the second answer lands first, then the stale first one
	provider.gate("TKT-002") <- &domain.Suggestion{Keywords: []string{"second"}}
	waitDone(t, second)
	provider.gate("TKT-001") <- &domain.Suggestion{Keywords: []string{"first"}}
	waitDone(t, first)

	state, _ = tracker.State("u-tech-1")
	assert.False(t, state.Loading)
	assert.Equal(t, "TKT-002", state.TicketID)
	require.NotNil(t, state.Suggestion)
	assert.Equal(t, []string{"second"}, state.Suggestion.Keywords)
}

func TestTrackerStaleResponseArrivingLateWhileLoading(t *testing.T) {
	provider := newGatedProvider()
	tracker := NewTracker(context.Background(), provider)

	first := tracker.Request("u-tech-1", domain.Ticket{ID: "TKT-001"})
	second := tracker.Request("u-tech-1", domain.Ticket{ID: "TKT-002"})

	provider.gate("TKT-001") <- &domain.Suggestion{Keywords: []string{"first"}}
	waitDone(t, first)

	state, _ := tracker.State("u-tech-1")
	assert.True(t, state.Loading)
	assert.Nil(t, state.Suggestion)

	provider.gate("TKT-002") <- nil
	waitDone(t, second)
	state, _ = tracker.State("u-tech-1")
	assert.False(t, state.Loading)
	assert.Nil(t, state.Suggestion)
}

func TestTrackerCancelsSupersededRequest(t *testing.T) {
	cancelled := make(chan struct{})
	provider := providerFunc(func(ctx context.Context, ticket domain.Ticket) *domain.Suggestion {
		if ticket.ID == "TKT-001" {
			<-ctx.Done()
			close(cancelled)
			return nil
		}
		return FallbackSuggestion()
	})
	tracker := NewTracker(context.Background(), provider)

	tracker.Request("u-admin-1", domain.Ticket{ID: "TKT-001"})
	latest := tracker.Request("u-admin-1", domain.Ticket{ID: "TKT-003"})

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded request was not cancelled")
	}
	waitDone(t, latest)
	state, _ := tracker.State("u-admin-1")
	assert.Equal(t, "TKT-003", state.TicketID)
	assert.NotNil(t, state.Suggestion)
}

func TestTrackerUsersAreIndependent(t *testing.T) {
	tracker := NewTracker(context.Background(), Fallback{})
	a := tracker.Request("u-tech-1", domain.Ticket{ID: "TKT-001"})
	b := tracker.Request("u-tech-2", domain.Ticket{ID: "TKT-002"})
	waitDone(t, a)
	waitDone(t, b)

	stateA, _ := tracker.State("u-tech-1")
	stateB, _ := tracker.State("u-tech-2")
	assert.Equal(t, "TKT-001", stateA.TicketID)
	assert.Equal(t, "TKT-002", stateB.TicketID)

	tracker.Forget("u-tech-1")
	_, ok := tracker.State("u-tech-1")
	assert.False(t, ok)
}

type providerFunc func(ctx context.Context, ticket domain.Ticket) *domain.Suggestion

func (f providerFunc) Suggest(ctx context.Context, ticket domain.Ticket) *domain.Suggestion {
	return f(ctx, ticket)
}
