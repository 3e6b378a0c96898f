package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/intake"
)

// ChatMessageRequest payload.
type ChatMessageRequest struct {
	Text string `json:"text"`
}

// ConversationResponse is the chat transcript and its state.
type ConversationResponse struct {
	Phase        intake.Phase      `json:"phase"`
	Messages     []MessageResponse `json:"messages"`
	LastTicketID string            `json:"last_ticket_id,omitempty"`
}

// MessageResponse is one chat line.
type MessageResponse struct {
	ID     string        `json:"id"`
	Sender intake.Sender `json:"sender"`
	Text   string        `json:"text"`
	SentAt time.Time     `json:"sent_at"`
}

func NewConversationResponse(conv intake.Conversation) ConversationResponse {
	resp := ConversationResponse{
		Phase:        conv.Phase,
		Messages:     make([]MessageResponse, 0, len(conv.Messages)),
		LastTicketID: conv.LastTicketID,
	}
	for _, m := range conv.Messages {
		resp.Messages = append(resp.Messages, MessageResponse{ID: m.ID, Sender: m.Sender, Text: m.Text, SentAt: m.SentAt})
	}
	return resp
}
