package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AdminDashboardResponse carries the administrator counters and the full list.
type AdminDashboardResponse struct {
	Stats   StatsResponse    `json:"stats"`
	Tickets []TicketResponse `json:"tickets"`
}

// StatsResponse mirrors service.TicketStats.
type StatsResponse struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
}

func NewStatsResponse(stats service.TicketStats) StatsResponse {
	return StatsResponse{Total: stats.Total, Open: stats.Open, InProgress: stats.InProgress, Pending: stats.Pending}
}

// QueueResponse is the technician's active work.
type QueueResponse struct {
	Assigned   []TicketResponse `json:"assigned"`
	Unassigned []TicketResponse `json:"unassigned"`
}

func NewQueueResponse(queue policy.Queue, now time.Time) QueueResponse {
	return QueueResponse{
		Assigned:   NewTicketResponses(queue.Assigned, now),
		Unassigned: NewTicketResponses(queue.Unassigned, now),
	}
}
