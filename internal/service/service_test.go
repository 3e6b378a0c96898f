package service

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

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/intake"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/seed"
	"github.com/spec-kit/helpdesk-service/internal/suggestion"
	"github.com/spec-kit/helpdesk-service/internal/ticketid"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var (
	alice  = domain.User{ID: "u-req-1", Name: "Alice Martin", Role: domain.RoleRequester, Email: "alice.martin@example.com"}
	brian  = domain.User{ID: "u-req-2", Name: "Brian Okafor", Role: domain.RoleRequester, Email: "brian.okafor@example.com"}
	carla  = domain.User{ID: "u-tech-1", Name: "Carla Mendes", Role: domain.RoleTechnician, Email: "carla.mendes@example.com"}
	deepak = domain.User{ID: "u-tech-2", Name: "Deepak Rao", Role: domain.RoleTechnician, Email: "deepak.rao@example.com"}
	erin   = domain.User{ID: "u-admin-1", Name: "Erin Walsh", Role: domain.RoleAdministrator, Email: "erin.walsh@example.com"}
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handler(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type createdCounter struct {
	mu      sync.Mutex
	sources map[string]int
}

func (c *createdCounter) RecordTicketCreated(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sources == nil {
		c.sources = map[string]int{}
	}
	c.sources[source]++
}

type fixture struct {
	tickets  *TicketService
	users    *repository.MemoryUserRepository
	repo     *repository.MemoryTicketRepository
	clock    *clock
	recorded *recordedEvents
	created  *createdCounter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	data, err := seed.Demo()
	require.NoError(t, err)

	users := repository.NewMemoryUserRepository()
	repo := repository.NewMemoryTicketRepository()
	seq := ticketid.NewSequence(ticketid.NewMemoryCounter(0))
	require.NoError(t, seed.Apply(context.Background(), data, users, repo, seq, zap.NewNop()))

	dispatcher := events.NewInMemoryDispatcher(nil)
	recorded := &recordedEvents{}
	for _, eventType := range events.AllTypes {
		dispatcher.Subscribe(eventType, recorded.handler)
	}

	clk := &clock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
	created := &createdCounter{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo: repo,
		UserRepo:   users,
		Sequence:   seq,
		Dispatcher: dispatcher,
		Metrics:    created,
		Now:        clk.Now,
	})
	return &fixture{tickets: svc, users: users, repo: repo, clock: clk, recorded: recorded, created: created}
}

func ids(tickets []domain.Ticket) []string {
	out := make([]string, len(tickets))
	for i, t := range tickets {
		out[i] = t.ID
	}
	return out
}

func strPtr(s string) *string { return &s }

func TestListAppliesVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine, err := f.tickets.List(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"TKT-004", "TKT-002", "TKT-001"}, ids(mine))

	all, err := f.tickets.List(ctx, erin)
	require.NoError(t, err)
	assert.Equal(t, []string{"TKT-005", "TKT-004", "TKT-003", "TKT-002", "TKT-001"}, ids(all))

	queue, err := f.tickets.List(ctx, carla)
	require.NoError(t, err)
	assert.Equal(t, []string{"TKT-005", "TKT-003", "TKT-002", "TKT-001"}, ids(queue))
}

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, alice, TicketCreateInput{
		Title:       "Printer offline",
		Description: "The 3rd floor printer shows offline.",
		Priority:    domain.TicketPriorityHigh,
		Category:    domain.TicketCategoryHardware,
	}, domain.TicketSourceWeb)
	require.NoError(t, err)

	assert.Equal(t, "TKT-006", ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, alice, ticket.Requester)
	assert.Nil(t, ticket.Assignee)
	assert.Empty(t, ticket.Comments)
	assert.Equal(t, f.clock.Now(), ticket.CreatedAt)
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)

	all, err := f.repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TKT-006", all[0].ID)
	assert.Contains(t, f.recorded.types(), events.EventTicketCreated)
	assert.Equal(t, 1, f.created.sources["Web"])
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, erin, TicketCreateInput{Title: "t", Description: "d"}, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketCategoryOther, ticket.Category)
	assert.Equal(t, domain.TicketSourceWeb, ticket.Source)

	_, err = f.tickets.Create(ctx, alice, TicketCreateInput{Title: "  ", Description: "d"}, domain.TicketSourceWeb)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.tickets.Create(ctx, alice, TicketCreateInput{Title: "t", Description: "d", Priority: "Critical"}, domain.TicketSourceWeb)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.tickets.Create(ctx, carla, TicketCreateInput{Title: "t", Description: "d"}, domain.TicketSourceWeb)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	n, _ := f.repo.Count(ctx)
	assert.Equal(t, 6, n)
}

func TestGetHidesInvisibleTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tickets.Get(ctx, alice, "TKT-005")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.tickets.Get(ctx, carla, "TKT-004")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.tickets.Get(ctx, erin, "TKT-999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := f.tickets.Get(ctx, deepak, "TKT-004")
	require.NoError(t, err)
	assert.Equal(t, "Outlook keeps asking for password", got.Title)
}

func TestTechnicianAssignsAndResolves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock.Advance(time.Hour)

	updated, err := f.tickets.Update(ctx, carla, "TKT-002", policy.Changes{
		AssigneeID: strPtr(carla.ID),
		Status:     statusPtr(domain.TicketStatusInProgress),
	})
	require.NoError(t, err)
	assert.Equal(t, carla.ID, updated.AssigneeID())
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, f.clock.Now(), updated.UpdatedAt)

	stored, err := f.repo.GetByID(ctx, "TKT-002")
	require.NoError(t, err)
	assert.Equal(t, updated, stored)

	types := f.recorded.types()
	assert.Contains(t, types, events.EventTicketAssigned)
	assert.Contains(t, types, events.EventTicketStatusChanged)
	assert.Contains(t, types, events.EventTicketUpdated)
}

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func TestRequesterCannotChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before, err := f.repo.GetByID(ctx, "TKT-002")
	require.NoError(t, err)

	_, err = f.tickets.Update(ctx, alice, "TKT-002", policy.Changes{Status: statusPtr(domain.TicketStatusClosed)})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrForbiddenField)
	assert.True(t, apperrors.IsValidation(err))

	after, err := f.repo.GetByID(ctx, "TKT-002")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAssignToNonTechnicianRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.tickets.Update(context.Background(), erin, "TKT-005", policy.Changes{AssigneeID: strPtr(alice.ID)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAssignee)

	_, err = f.tickets.Update(context.Background(), erin, "TKT-005", policy.Changes{AssigneeID: strPtr("u-ghost")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAssignee)
}

func TestUpdateMissingTicket(t *testing.T) {
	f := newFixture(t)
	_, err := f.tickets.Update(context.Background(), erin, "TKT-404", policy.Changes{Status: statusPtr(domain.TicketStatusClosed)})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock.Advance(time.Minute)

	updated, err := f.tickets.AddComment(ctx, deepak, "TKT-004", "  MFA token re-registered.  ")
	require.NoError(t, err)
	require.Len(t, updated.Comments, 2)
	last := updated.Comments[1]
	assert.Equal(t, "Deepak Rao", last.Author)
	assert.Equal(t, "MFA token re-registered.", last.Text)
	assert.Equal(t, f.clock.Now(), last.Timestamp)
	assert.Contains(t, f.recorded.types(), events.EventTicketCommentAdded)

	_, err = f.tickets.AddComment(ctx, deepak, "TKT-004", "   ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.tickets.AddComment(ctx, alice, "TKT-004", "any update?")
	assert.ErrorIs(t, err, apperrors.ErrForbiddenField)
}

func TestPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	perms, err := f.tickets.Permissions(ctx, alice, "TKT-002")
	require.NoError(t, err)
	for field, allowed := range perms {
		assert.False(t, allowed, "requester should not edit %s", field)
	}

	perms, err = f.tickets.Permissions(ctx, erin, "TKT-002")
	require.NoError(t, err)
	assert.True(t, perms[policy.FieldStatus])
	assert.True(t, perms[policy.FieldAssignee])
	assert.False(t, perms[policy.FieldTitle])
}

func TestStatsAndQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stats, err := f.tickets.Stats(ctx, erin)
	require.NoError(t, err)
	assert.Equal(t, TicketStats{Total: 5, Open: 2, InProgress: 1, Pending: 1}, stats)

	_, err = f.tickets.Stats(ctx, carla)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	queue, err := f.tickets.TechnicianQueue(ctx, carla)
	require.NoError(t, err)
	assert.Equal(t, []string{"TKT-003"}, ids(queue.Assigned))
	assert.Equal(t, []string{"TKT-005", "TKT-002"}, ids(queue.Unassigned))

	_, err = f.tickets.TechnicianQueue(ctx, erin)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestConcurrentCommentsAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tickets.AddComment(ctx, erin, "TKT-005", "checking")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.repo.GetByID(ctx, "TKT-005")
	require.NoError(t, err)
	assert.Len(t, stored.Comments, 20)
}

func newSessionService(users repository.UserRepository) (*SessionService, *auth.SessionRegistry) {
	registry := auth.NewSessionRegistry()
	return NewSessionService(users, auth.NewTokenManager("secret", time.Hour), registry, nil), registry
}

func TestLoginByRolePicksFirstUser(t *testing.T) {
	f := newFixture(t)
	sessions, registry := newSessionService(f.users)

	res, err := sessions.Login(context.Background(), LoginInput{Role: domain.RoleTechnician})
	require.NoError(t, err)
	assert.Equal(t, carla.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)
	_, ok := registry.Active(res.Session.ID, time.Now())
	assert.True(t, ok)

	res, err = sessions.Login(context.Background(), LoginInput{UserID: deepak.ID})
	require.NoError(t, err)
	assert.Equal(t, deepak, res.User)

	_, err = sessions.Login(context.Background(), LoginInput{Role: "Guest"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = sessions.Login(context.Background(), LoginInput{UserID: "u-ghost"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = sessions.Login(context.Background(), LoginInput{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLogoutRunsHooksOnce(t *testing.T) {
	f := newFixture(t)
	sessions, registry := newSessionService(f.users)
	var forgotten []string
	sessions.OnLogout(func(userID string) { forgotten = append(forgotten, userID) })

	res, err := sessions.Login(context.Background(), LoginInput{Role: domain.RoleRequester})
	require.NoError(t, err)
	principal := auth.Principal{User: res.User, SessionID: res.Session.ID}

	sessions.Logout(context.Background(), principal)
	sessions.Logout(context.Background(), principal)

	assert.Equal(t, []string{alice.ID}, forgotten)
	assert.Equal(t, 0, registry.Len())
}

func TestLogoutKeepsStateWhileAnotherSessionIsLive(t *testing.T) {
	f := newFixture(t)
	sessions, _ := newSessionService(f.users)
	var forgotten []string
	sessions.OnLogout(func(userID string) { forgotten = append(forgotten, userID) })

	first, err := sessions.Login(context.Background(), LoginInput{Role: domain.RoleRequester})
	require.NoError(t, err)
	second, err := sessions.Login(context.Background(), LoginInput{Role: domain.RoleRequester})
	require.NoError(t, err)

	sessions.Logout(context.Background(), auth.Principal{User: first.User, SessionID: first.Session.ID})
	assert.Empty(t, forgotten)

	sessions.Logout(context.Background(), auth.Principal{User: second.User, SessionID: second.Session.ID})
	assert.Equal(t, []string{alice.ID}, forgotten)
}

func TestDirectory(t *testing.T) {
	f := newFixture(t)
	sessions, _ := newSessionService(f.users)

	techs, err := sessions.Directory(context.Background(), domain.RoleTechnician)
	require.NoError(t, err)
	assert.Equal(t, []domain.User{carla, deepak}, techs)

	all, err := sessions.Directory(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = sessions.Directory(context.Background(), "Guest")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestIntakeCreatesChatTicket(t *testing.T) {
	f := newFixture(t)
	svc := NewIntakeService(context.Background(), 0, f.tickets, zap.NewNop())

	conv, done, err := svc.Submit(alice, "VPN won't connect on my laptop")
	require.NoError(t, err)
	assert.Equal(t, intake.PhasePending, conv.Phase)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("intake did not finish")
	}

	conv, err = svc.Conversation(alice)
	require.NoError(t, err)
	assert.Equal(t, "TKT-006", conv.LastTicketID)

	ticket, err := f.tickets.Get(context.Background(), alice, "TKT-006")
	require.NoError(t, err)
	assert.Equal(t, "VPN won't connect on my laptop", ticket.Title)
	assert.Equal(t, domain.TicketSourceChat, ticket.Source)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketCategoryOther, ticket.Category)

	_, err = svc.Conversation(carla)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, _, err = svc.Submit(erin, "hello")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestSuggestionService(t *testing.T) {
	f := newFixture(t)
	tracker := suggestion.NewTracker(context.Background(), suggestion.Fallback{})
	svc := NewSuggestionService(f.tickets, tracker)
	ctx := context.Background()

	_, err := svc.Current(carla)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, pending, err := svc.Request(ctx, carla, "TKT-002")
	require.NoError(t, err)
	<-pending.Done

	state, err := svc.Current(carla)
	require.NoError(t, err)
	assert.Equal(t, "TKT-002", state.TicketID)
	assert.False(t, state.Loading)
	require.NotNil(t, state.Suggestion)

	_, _, err = svc.Request(ctx, carla, "TKT-004")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, _, err = svc.Request(ctx, alice, "TKT-002")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestNotificationWebhookDelivery(t *testing.T) {
	var got map[string]any
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		header = r.Header.Get("X-Helpdesk-Event")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc := NewNotificationService(events.NewInMemoryDispatcher(nil), zap.NewNop(), config.NotificationConfig{WebhookURL: srv.URL})
	require.True(t, svc.WebhookEnabled())

	err := svc.Deliver(context.Background(), events.Event{ID: "e1", Type: events.EventTicketAssigned, TicketID: "TKT-002"})
	require.NoError(t, err)
	assert.Equal(t, "ticket_assigned", header)
	assert.Equal(t, "TKT-002", got["ticket_id"])
}

func TestNotificationWebhookRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewNotificationService(nil, zap.NewNop(), config.NotificationConfig{WebhookURL: srv.URL})
	assert.Error(t, svc.Deliver(context.Background(), events.Event{Type: events.EventTicketCreated}))

	disabled := NewNotificationService(nil, zap.NewNop(), config.NotificationConfig{})
	assert.NoError(t, disabled.Deliver(context.Background(), events.Event{Type: events.EventTicketCreated}))
}
