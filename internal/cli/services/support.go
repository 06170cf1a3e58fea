package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bankctl-dev/bankctl/internal/models"
)

// Support wraps the /support endpoints
type Support struct {
	base
}

func ticketPath(ticketID string, suffix string) string {
	return "/support/tickets/" + url.PathEscape(ticketID) + suffix
}

// CreateTicket opens a support ticket
func (s *Support) CreateTicket(ctx context.Context, ticket models.SupportTicket) (*models.SupportTicket, error) {
	var created models.SupportTicket
	if err := s.do(ctx, http.MethodPost, "/support/tickets", nil, ticket, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListTickets returns the caller's tickets
func (s *Support) ListTickets(ctx context.Context) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	if err := s.do(ctx, http.MethodGet, "/support/tickets", nil, nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetTicket returns one ticket
func (s *Support) GetTicket(ctx context.Context, ticketID string) (*models.SupportTicket, error) {
	var ticket models.SupportTicket
	if err := s.do(ctx, http.MethodGet, ticketPath(ticketID, ""), nil, nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateTicket modifies a ticket
func (s *Support) UpdateTicket(ctx context.Context, ticketID string, ticket models.TicketUpdate) (*models.SupportTicket, error) {
	var updated models.SupportTicket
	if err := s.do(ctx, http.MethodPut, ticketPath(ticketID, ""), nil, ticket, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// CloseTicket marks a ticket closed
func (s *Support) CloseTicket(ctx context.Context, ticketID string) (*models.SupportTicket, error) {
	var closed models.SupportTicket
	if err := s.do(ctx, http.MethodPost, ticketPath(ticketID, "/close"), nil, nil, &closed); err != nil {
		return nil, err
	}
	return &closed, nil
}

// AddReply posts a message on a ticket
func (s *Support) AddReply(ctx context.Context, ticketID, message string) (*models.TicketReply, error) {
	body := map[string]string{"message": message}

	var reply models.TicketReply
	if err := s.do(ctx, http.MethodPost, ticketPath(ticketID, "/replies"), nil, body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListReplies returns the conversation on a ticket
func (s *Support) ListReplies(ctx context.Context, ticketID string) ([]models.TicketReply, error) {
	var replies []models.TicketReply
	if err := s.do(ctx, http.MethodGet, ticketPath(ticketID, "/replies"), nil, nil, &replies); err != nil {
		return nil, err
	}
	return replies, nil
}
