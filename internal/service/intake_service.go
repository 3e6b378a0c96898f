package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/intake"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// IntakeService exposes the chat assistant to requesters and files its
// tickets through the ticket service.
type IntakeService struct {
	manager *intake.Manager
}

// NewIntakeService wires a chat manager to tickets. Background ticket
// creation stops when base is cancelled.
func NewIntakeService(base context.Context, delay time.Duration, tickets *TicketService, logger *zap.Logger) *IntakeService {
	create := func(ctx context.Context, requester domain.User, draft intake.Draft) (domain.Ticket, error) {
		return tickets.Create(ctx, requester, TicketCreateInput{
			Title:       draft.Title,
			Description: draft.Description,
			Priority:    draft.Priority,
			Category:    draft.Category,
		}, draft.Source)
	}
	return &IntakeService{manager: intake.NewManager(base, delay, create, logger)}
}

// Conversation returns actor's chat.
func (s *IntakeService) Conversation(actor domain.User) (intake.Conversation, error) {
	if !policy.Can(actor.Role, policy.ActionUseIntake) {
		return intake.Conversation{}, apperrors.NewForbidden("chat intake is for requesters")
	}
	return s.manager.Snapshot(actor.ID), nil
}

// Submit posts a message. done closes once the resulting ticket is filed or
// the attempt failed.
func (s *IntakeService) Submit(actor domain.User, text string) (intake.Conversation, <-chan struct{}, error) {
	if !policy.Can(actor.Role, policy.ActionUseIntake) {
		return intake.Conversation{}, nil, apperrors.NewForbidden("chat intake is for requesters")
	}
	return s.manager.Submit(actor, text)
}

// Forget drops userID's conversation.
func (s *IntakeService) Forget(userID string) {
	s.manager.Reset(userID)
}
