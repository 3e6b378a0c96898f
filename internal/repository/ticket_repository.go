package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketRepository is the backing collection of tickets. List returns the most
// recently inserted ticket first.
type TicketRepository interface {
	List(ctx context.Context) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id string) (domain.Ticket, error)
	Insert(ctx context.Context, ticket domain.Ticket) error
	Replace(ctx context.Context, ticket domain.Ticket) error
	Count(ctx context.Context) (int, error)
}

type ticketRepository struct {
	pool querier
}

// NewTicketRepository returns a Postgres-backed implementation.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `
        t.id, t.title, t.description, t.status, t.priority, t.category, t.source,
        t.created_at, t.updated_at,
        r.id, r.name, r.role, r.email,
        a.id, a.name, a.role, a.email`

const ticketFrom = `
        FROM tickets t
        JOIN users r ON r.id = t.requester_id
        LEFT JOIN users a ON a.id = t.assignee_id`

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+ticketColumns+ticketFrom+` ORDER BY t.seq DESC`)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachComments(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+ticketColumns+ticketFrom+` WHERE t.id=$1`, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return domain.Ticket{}, err
	}
	if len(tickets) == 0 {
		return domain.Ticket{}, ErrNotFound
	}
	if err := r.attachComments(ctx, tickets); err != nil {
		return domain.Ticket{}, err
	}
	return tickets[0], nil
}

func (r *ticketRepository) Insert(ctx context.Context, ticket domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
        INSERT INTO tickets (id, title, description, requester_id, assignee_id, status, priority, category, source, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	if _, err := tx.Exec(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.Requester.ID,
		nullableID(ticket.Assignee),
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.Source,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert ticket %s: %w", ticket.ID, err)
	}
	if err := insertComments(ctx, tx, ticket.ID, 0, ticket.Comments); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Replace overwrites the mutable columns and appends comments the stored row
// does not have yet. Stored comments are never rewritten.
func (r *ticketRepository) Replace(ctx context.Context, ticket domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
        UPDATE tickets SET assignee_id=$1, status=$2, priority=$3, title=$4, description=$5, category=$6, updated_at=$7
        WHERE id=$8`
	cmd, err := tx.Exec(ctx, query,
		nullableID(ticket.Assignee),
		ticket.Status,
		ticket.Priority,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	var stored int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_comments WHERE ticket_id=$1`, ticket.ID).Scan(&stored); err != nil {
		return err
	}
	if stored < len(ticket.Comments) {
		if err := insertComments(ctx, tx, ticket.ID, stored, ticket.Comments[stored:]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n)
	return n, err
}

func insertComments(ctx context.Context, tx pgx.Tx, ticketID string, start int, comments []domain.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, comment := range comments {
		batch.Queue(`INSERT INTO ticket_comments (ticket_id, position, author, body, created_at) VALUES ($1,$2,$3,$4,$5)`,
			ticketID, start+i, comment.Author, comment.Text, comment.Timestamp)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert comments for %s: %w", ticketID, err)
	}
	return nil
}

func (r *ticketRepository) attachComments(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]string, len(tickets))
	index := make(map[string]int, len(tickets))
	for i, ticket := range tickets {
		ids[i] = ticket.ID
		index[ticket.ID] = i
	}

	rows, err := r.pool.Query(ctx, `
        SELECT ticket_id, author, body, created_at
        FROM ticket_comments WHERE ticket_id = ANY($1)
        ORDER BY ticket_id, position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ticketID string
		var comment domain.Comment
		if err := rows.Scan(&ticketID, &comment.Author, &comment.Text, &comment.Timestamp); err != nil {
			return err
		}
		i := index[ticketID]
		tickets[i].Comments = append(tickets[i].Comments, comment)
	}
	return rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		var assigneeID, assigneeName, assigneeRole, assigneeEmail *string
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Category,
			&ticket.Source,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.Requester.ID,
			&ticket.Requester.Name,
			&ticket.Requester.Role,
			&ticket.Requester.Email,
			&assigneeID,
			&assigneeName,
			&assigneeRole,
			&assigneeEmail,
		); err != nil {
			return nil, err
		}
		if assigneeID != nil {
			ticket.Assignee = &domain.User{
				ID:    *assigneeID,
				Name:  deref(assigneeName),
				Role:  domain.Role(deref(assigneeRole)),
				Email: deref(assigneeEmail),
			}
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullableID(user *domain.User) *string {
	if user == nil {
		return nil
	}
	id := user.ID
	return &id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
