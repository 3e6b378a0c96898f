package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/suggestion"
)

// SuggestionStateResponse reports the caller's latest suggestion request.
// Suggestion is null while loading and when the provider had nothing.
type SuggestionStateResponse struct {
	TicketID    string              `json:"ticket_id"`
	Loading     bool                `json:"loading"`
	Suggestion  *SuggestionResponse `json:"suggestion"`
	RequestedAt time.Time           `json:"requested_at"`
}

type SuggestionResponse struct {
	Solutions []string `json:"solutions"`
	Keywords  []string `json:"keywords"`
}

func NewSuggestionStateResponse(state suggestion.State) SuggestionStateResponse {
	resp := SuggestionStateResponse{
		TicketID:    state.TicketID,
		Loading:     state.Loading,
		RequestedAt: state.RequestedAt,
	}
	if state.Suggestion != nil {
		resp.Suggestion = &SuggestionResponse{
			Solutions: append([]string{}, state.Suggestion.Solutions...),
			Keywords:  append([]string{}, state.Suggestion.Keywords...),
		}
	}
	return resp
}
