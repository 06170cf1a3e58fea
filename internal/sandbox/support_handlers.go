package sandbox

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bankctl-dev/bankctl/internal/models"
)

// CreateTicketRequest opens a support ticket
type CreateTicketRequest struct {
	Subject     string `json:"subject" binding:"required,max=200"`
	Description string `json:"description" binding:"max=5000"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
}

// UpdateTicketRequest edits an open ticket. Empty fields are left as they are.
type UpdateTicketRequest struct {
	Subject     string `json:"subject" binding:"max=200"`
	Description string `json:"description" binding:"max=5000"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status      string `json:"status" binding:"omitempty,oneof=open in_progress resolved"`
}

// ReplyRequest adds a message to a ticket
type ReplyRequest struct {
	Message string `json:"message" binding:"required,max=5000"`
}

// loadTicket finds the ticket in the path. Tickets of other users are
// reported as missing unless the caller is an admin.
func (s *Server) loadTicket(c *gin.Context) (*Ticket, bool) {
	var ticket Ticket
	if err := FindByID(s.db, c.Param("id"), &ticket); err != nil {
		errorJSON(c, http.StatusNotFound, "Ticket not found")
		return nil, false
	}

	user := currentUser(c)
	if ticket.UserID != user.ID && !user.IsAdmin {
		errorJSON(c, http.StatusNotFound, "Ticket not found")
		return nil, false
	}
	return &ticket, true
}

func (s *Server) listTickets(c *gin.Context) {
	var tickets []Ticket
	if err := s.db.Where("user_id = ?", currentUser(c).ID).Order("created_at DESC, id DESC").Find(&tickets).Error; err != nil {
		s.internalError(c, err, "Failed to list tickets")
		return
	}

	out := make([]models.SupportTicket, 0, len(tickets))
	for i := range tickets {
		out = append(out, *tickets[i].toModel())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createTicket(c *gin.Context) {
	var req CreateTicketRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}

	ticket := Ticket{
		UserID:      currentUser(c).ID,
		Subject:     req.Subject,
		Description: req.Description,
		Status:      "open",
		Priority:    req.Priority,
	}
	if err := s.db.Create(&ticket).Error; err != nil {
		s.internalError(c, err, "Failed to create ticket")
		return
	}

	c.JSON(http.StatusCreated, ticket.toModel())
}

func (s *Server) getTicket(c *gin.Context) {
	ticket, ok := s.loadTicket(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ticket.toModel())
}

func (s *Server) updateTicket(c *gin.Context) {
	var req UpdateTicketRequest
	if !bindJSON(c, &req) {
		return
	}

	ticket, ok := s.loadTicket(c)
	if !ok {
		return
	}
	if ticket.Status == "closed" {
		errorJSON(c, http.StatusBadRequest, "Ticket is closed")
		return
	}

	if req.Subject != "" {
		ticket.Subject = req.Subject
	}
	if req.Description != "" {
		ticket.Description = req.Description
	}
	if req.Priority != "" {
		ticket.Priority = req.Priority
	}
	if req.Status != "" {
		ticket.Status = req.Status
	}
	if err := s.db.Model(ticket).Select("subject", "description", "priority", "status").Updates(ticket).Error; err != nil {
		s.internalError(c, err, "Failed to update ticket")
		return
	}

	c.JSON(http.StatusOK, ticket.toModel())
}

func (s *Server) closeTicket(c *gin.Context) {
	ticket, ok := s.loadTicket(c)
	if !ok {
		return
	}
	if ticket.Status == "closed" {
		errorJSON(c, http.StatusBadRequest, "Ticket is already closed")
		return
	}

	ticket.Status = "closed"
	if err := s.db.Model(ticket).Update("status", ticket.Status).Error; err != nil {
		s.internalError(c, err, "Failed to close ticket")
		return
	}

	c.JSON(http.StatusOK, ticket.toModel())
}

func (s *Server) listReplies(c *gin.Context) {
	ticket, ok := s.loadTicket(c)
	if !ok {
		return
	}

	var replies []TicketReply
	if err := s.db.Where("ticket_id = ?", ticket.ID).Order("created_at ASC, id ASC").Find(&replies).Error; err != nil {
		s.internalError(c, err, "Failed to list replies")
		return
	}

	out := make([]models.TicketReply, 0, len(replies))
	for i := range replies {
		out = append(out, *replies[i].toModel())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) addReply(c *gin.Context) {
	var req ReplyRequest
	if !bindJSON(c, &req) {
		return
	}

	ticket, ok := s.loadTicket(c)
	if !ok {
		return
	}
	if ticket.Status == "closed" {
		errorJSON(c, http.StatusBadRequest, "Ticket is closed")
		return
	}

	reply := TicketReply{
		TicketID: ticket.ID,
		UserID:   currentUser(c).ID,
		Message:  req.Message,
	}
	if err := s.db.Create(&reply).Error; err != nil {
		s.internalError(c, err, "Failed to add reply")
		return
	}

	c.JSON(http.StatusCreated, reply.toModel())
}
