package service

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/suggestion"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SuggestionService starts suggestion fetches for tickets the caller can see
// and reports the caller's latest result.
type SuggestionService struct {
	tickets *TicketService
	tracker *suggestion.Tracker
}

func NewSuggestionService(tickets *TicketService, tracker *suggestion.Tracker) *SuggestionService {
	return &SuggestionService{tickets: tickets, tracker: tracker}
}

// Request starts a fetch for ticket id, superseding actor's previous one.
func (s *SuggestionService) Request(ctx context.Context, actor domain.User, id string) (suggestion.State, suggestion.Pending, error) {
	if !policy.Can(actor.Role, policy.ActionRequestSuggestions) {
		return suggestion.State{}, suggestion.Pending{}, apperrors.NewForbidden("role may not request suggestions")
	}
	ticket, err := s.tickets.Get(ctx, actor, id)
	if err != nil {
		return suggestion.State{}, suggestion.Pending{}, err
	}
	pending := s.tracker.Request(actor.ID, ticket)
	state, _ := s.tracker.State(actor.ID)
	return state, pending, nil
}

// Current returns actor's latest suggestion state.
func (s *SuggestionService) Current(actor domain.User) (suggestion.State, error) {
	if !policy.Can(actor.Role, policy.ActionRequestSuggestions) {
		return suggestion.State{}, apperrors.NewForbidden("role may not request suggestions")
	}
	state, ok := s.tracker.State(actor.ID)
	if !ok {
		return suggestion.State{}, apperrors.NewNotFound("suggestion", nil)
	}
	return state, nil
}

// Forget cancels and drops userID's fetch.
func (s *SuggestionService) Forget(userID string) {
	s.tracker.Forget(userID)
}
