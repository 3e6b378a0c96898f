// Package seed loads the demo directory and tickets from YAML.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/ticketid"
)

//go:embed demo.yaml
var demoYAML []byte

// Data is a parsed seed file.
type Data struct {
	Users   []domain.User
	Tickets []domain.Ticket
}

type file struct {
	Users   []userRecord   `yaml:"users"`
	Tickets []ticketRecord `yaml:"tickets"`
}

type userRecord struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Role  string `yaml:"role"`
	Email string `yaml:"email"`
}

type ticketRecord struct {
	ID          string          `yaml:"id"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Requester   string          `yaml:"requester"`
	Assignee    string          `yaml:"assignee"`
	Status      string          `yaml:"status"`
	Priority    string          `yaml:"priority"`
	Category    string          `yaml:"category"`
	Source      string          `yaml:"source"`
	CreatedAt   time.Time       `yaml:"created_at"`
	UpdatedAt   time.Time       `yaml:"updated_at"`
	Comments    []commentRecord `yaml:"comments"`
}

type commentRecord struct {
	Author    string    `yaml:"author"`
	Text      string    `yaml:"text"`
	Timestamp time.Time `yaml:"timestamp"`
}

// Demo returns the built-in demo data.
func Demo() (Data, error) {
	return Parse(demoYAML)
}

// Load reads a seed file from path, or the built-in demo when path is empty.
func Load(path string) (Data, error) {
	if path == "" {
		return Demo()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("read seed %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and checks a seed document: roles and enums must be known,
// ticket references must resolve, and an assignee must be a technician.
func Parse(raw []byte) (Data, error) {
	var doc file
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Data{}, fmt.Errorf("decode seed: %w", err)
	}

	data := Data{}
	byID := make(map[string]domain.User, len(doc.Users))
	for _, rec := range doc.Users {
		user := domain.User{ID: rec.ID, Name: rec.Name, Role: domain.Role(rec.Role), Email: rec.Email}
		if user.ID == "" || !user.Role.Valid() {
			return Data{}, fmt.Errorf("seed user %q: invalid id or role %q", rec.ID, rec.Role)
		}
		if _, dup := byID[user.ID]; dup {
			return Data{}, fmt.Errorf("seed user %q: duplicate id", user.ID)
		}
		byID[user.ID] = user
		data.Users = append(data.Users, user)
	}

	seen := map[string]bool{}
	for _, rec := range doc.Tickets {
		ticket, err := rec.toDomain(byID)
		if err != nil {
			return Data{}, err
		}
		if seen[ticket.ID] {
			return Data{}, fmt.Errorf("seed ticket %q: duplicate id", ticket.ID)
		}
		seen[ticket.ID] = true
		data.Tickets = append(data.Tickets, ticket)
	}
	return data, nil
}

func (rec ticketRecord) toDomain(users map[string]domain.User) (domain.Ticket, error) {
	requester, ok := users[rec.Requester]
	if !ok {
		return domain.Ticket{}, fmt.Errorf("seed ticket %q: unknown requester %q", rec.ID, rec.Requester)
	}
	ticket := domain.Ticket{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Requester:   requester,
		Status:      domain.TicketStatus(rec.Status),
		Priority:    domain.TicketPriority(rec.Priority),
		Category:    domain.TicketCategory(rec.Category),
		Source:      domain.TicketSource(rec.Source),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if !ticket.Status.Valid() || !ticket.Priority.Valid() || !ticket.Category.Valid() {
		return domain.Ticket{}, fmt.Errorf("seed ticket %q: invalid status, priority or category", rec.ID)
	}
	if ticket.UpdatedAt.Before(ticket.CreatedAt) {
		return domain.Ticket{}, fmt.Errorf("seed ticket %q: updated_at before created_at", rec.ID)
	}
	if rec.Assignee != "" {
		assignee, ok := users[rec.Assignee]
		if !ok || assignee.Role != domain.RoleTechnician {
			return domain.Ticket{}, fmt.Errorf("seed ticket %q: assignee %q is not a technician", rec.ID, rec.Assignee)
		}
		ticket.Assignee = &assignee
	}
	for _, c := range rec.Comments {
		ticket.Comments = append(ticket.Comments, domain.Comment{Author: c.Author, Text: c.Text, Timestamp: c.Timestamp})
	}
	return ticket, nil
}

// Apply writes data into the repositories and primes seq past every stored id.
// Users are upserted; tickets are only inserted into an empty collection so a
// restarted postgres backend keeps its state.
func Apply(ctx context.Context, data Data, users repository.UserRepository, tickets repository.TicketRepository, seq *ticketid.Sequence, logger *zap.Logger) error {
	for _, user := range data.Users {
		if err := users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", user.ID, err)
		}
	}

	count, err := tickets.Count(ctx)
	if err != nil {
		return err
	}
	inserted := 0
	if count == 0 {
		// Insert prepends, so walk oldest first to keep file order.
		for i := len(data.Tickets) - 1; i >= 0; i-- {
			if err := tickets.Insert(ctx, data.Tickets[i]); err != nil {
				return fmt.Errorf("seed ticket %s: %w", data.Tickets[i].ID, err)
			}
			inserted++
		}
	}

	stored, err := tickets.List(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, len(stored))
	for i, ticket := range stored {
		ids[i] = ticket.ID
	}
	if err := seq.Prime(ctx, ids); err != nil {
		return err
	}

	logger.Info("seed applied",
		zap.Int("users", len(data.Users)),
		zap.Int("tickets_inserted", inserted),
		zap.Int("tickets_total", len(stored)),
	)
	return nil
}
