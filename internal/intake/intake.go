// Package intake runs the chat assistant that turns a requester's free text
// description into a ticket.
package intake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	Greeting        = "Hello! I'm the helpdesk AI Assistant. Briefly describe your issue to create a ticket."
	Acknowledgement = "I've created a ticket for you based on your description. You can see it on your dashboard. An IT technician will be in touch shortly."
	Apology         = "Sorry, I couldn't create a ticket right now. Please try again in a moment."

	titleLimit = 50
)

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Phase is the conversation state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePending Phase = "pending"
)

// Message is one chat line.
type Message struct {
	ID     string
	Sender Sender
	Text   string
	SentAt time.Time
}

// Conversation is a point-in-time copy of a requester's chat.
type Conversation struct {
	Messages     []Message
	Phase        Phase
	LastTicketID string
}

// Draft is the ticket derived from a chat message.
type Draft struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Category    domain.TicketCategory
	Source      domain.TicketSource
}

// DraftFromMessage builds a draft: the title is the first 50 characters of
// text, the description is text in full.
func DraftFromMessage(text string) Draft {
	title := text
	if runes := []rune(text); len(runes) > titleLimit {
		title = string(runes[:titleLimit])
	}
	return Draft{
		Title:       title,
		Description: text,
		Priority:    domain.TicketPriorityMedium,
		Category:    domain.TicketCategoryOther,
		Source:      domain.TicketSourceChat,
	}
}

// CreateFunc files the ticket for requester.
type CreateFunc func(ctx context.Context, requester domain.User, draft Draft) (domain.Ticket, error)

type conversation struct {
	messages     []Message
	phase        Phase
	lastTicketID string
}

// Manager owns one conversation per requester.
type Manager struct {
	base   context.Context
	delay  time.Duration
	create CreateFunc
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	convs map[string]*conversation
}

// NewManager returns a manager whose background work stops when base ends.
func NewManager(base context.Context, delay time.Duration, create CreateFunc, logger *zap.Logger) *Manager {
	return &Manager{
		base:   base,
		delay:  delay,
		create: create,
		logger: logger,
		now:    time.Now,
		convs:  make(map[string]*conversation),
	}
}

// Snapshot returns userID's conversation, starting it with the greeting on
// first access.
func (m *Manager) Snapshot(userID string) Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversationLocked(userID).snapshot()
}

// Submit records text and schedules ticket creation after the configured
// delay. Whitespace-only text and submissions while a previous one is still
// pending are rejected without touching the conversation. done closes when
// the conversation is idle again.
func (m *Manager) Submit(requester domain.User, text string) (Conversation, <-chan struct{}, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Conversation{}, nil, apperrors.NewValidationError("message text required", nil)
	}

	m.mu.Lock()
	conv := m.conversationLocked(requester.ID)
	if conv.phase == PhasePending {
		m.mu.Unlock()
		return Conversation{}, nil, apperrors.NewConflict("a ticket is already being created", nil)
	}
	conv.messages = append(conv.messages, m.message(SenderUser, text))
	conv.phase = PhasePending
	snap := conv.snapshot()
	m.mu.Unlock()

	done := make(chan struct{})
	go m.process(conv, requester, text, done)
	return snap, done, nil
}

// Reset discards userID's conversation.
func (m *Manager) Reset(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convs, userID)
}

func (m *Manager) process(owner *conversation, requester domain.User, text string, done chan<- struct{}) {
	defer close(done)

	ticket, err := m.wait()
	if err == nil {
		ticket, err = m.create(m.base, requester, DraftFromMessage(text))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.convs[requester.ID]
	if !ok || conv != owner {
		// conversation was reset while pending; the ticket, if any, still stands
		return
	}
	conv.phase = PhaseIdle
	if err != nil {
		m.logger.Warn("chat intake could not create ticket", zap.String("user_id", requester.ID), zap.Error(err))
		conv.messages = append(conv.messages, m.message(SenderBot, Apology))
		return
	}
	conv.lastTicketID = ticket.ID
	conv.messages = append(conv.messages, m.message(SenderBot, Acknowledgement))
	m.logger.Info("chat intake created ticket", zap.String("user_id", requester.ID), zap.String("ticket_id", ticket.ID))
}

func (m *Manager) wait() (domain.Ticket, error) {
	if m.delay <= 0 {
		return domain.Ticket{}, m.base.Err()
	}
	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return domain.Ticket{}, nil
	case <-m.base.Done():
		return domain.Ticket{}, m.base.Err()
	}
}

func (m *Manager) conversationLocked(userID string) *conversation {
	conv, ok := m.convs[userID]
	if !ok {
		conv = &conversation{
			messages: []Message{m.message(SenderBot, Greeting)},
			phase:    PhaseIdle,
		}
		m.convs[userID] = conv
	}
	return conv
}

func (m *Manager) message(sender Sender, text string) Message {
	return Message{ID: uuid.NewString(), Sender: sender, Text: text, SentAt: m.now()}
}

func (c *conversation) snapshot() Conversation {
	messages := make([]Message, len(c.messages))
	copy(messages, c.messages)
	return Conversation{Messages: messages, Phase: c.phase, LastTicketID: c.lastTicketID}
}
