package sandbox

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bankctl-dev/bankctl/internal/models"
)

const searchLimit = 10

// UpdateUserRequest edits a profile. IsActive and IsAdmin are honoured only
// for admins.
type UpdateUserRequest struct {
	Name     string `json:"name" binding:"max=100"`
	Email    string `json:"email" binding:"omitempty,email"`
	Title    string `json:"title" binding:"max=100"`
	Bio      string `json:"bio" binding:"max=1000"`
	IsActive *bool  `json:"is_active"`
	IsAdmin  *bool  `json:"is_admin"`
}

// loadUser finds the user in the path. Members may only see themselves;
// anyone else is reported as missing.
func (s *Server) loadUser(c *gin.Context) (*User, bool) {
	caller := currentUser(c)
	id := c.Param("id")
	if id != caller.ID && !caller.IsAdmin {
		errorJSON(c, http.StatusNotFound, "User not found")
		return nil, false
	}

	var user User
	if err := FindByID(s.db, id, &user); err != nil {
		errorJSON(c, http.StatusNotFound, "User not found")
		return nil, false
	}
	return &user, true
}

func (s *Server) listUsers(c *gin.Context) {
	s.adminUsers(c)
}

func (s *Server) searchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		errorJSON(c, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var users []User
	err := s.db.Where("(LOWER(username) LIKE ? OR LOWER(email) LIKE ?) AND is_active = ?", pattern, pattern, true).
		Order("username ASC").
		Limit(searchLimit).
		Find(&users).Error
	if err != nil {
		s.internalError(c, err, "Failed to search users")
		return
	}

	// Only what a transfer needs
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		out = append(out, models.User{ID: models.ID(u.ID), Username: u.Username, Email: u.Email})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getUser(c *gin.Context) {
	user, ok := s.loadUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user.toModel())
}

func (s *Server) updateCurrentUser(c *gin.Context) {
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	s.applyUserUpdate(c, currentUser(c), req)
}

func (s *Server) updateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, ok := s.loadUser(c)
	if !ok {
		return
	}
	s.applyUserUpdate(c, user, req)
}

func (s *Server) applyUserUpdate(c *gin.Context, user *User, req UpdateUserRequest) {
	caller := currentUser(c)
	if (req.IsActive != nil || req.IsAdmin != nil) && !caller.IsAdmin {
		errorJSON(c, http.StatusForbidden, "Admin access required")
		return
	}
	if user.ID == caller.ID && ((req.IsAdmin != nil && !*req.IsAdmin) || (req.IsActive != nil && !*req.IsActive)) {
		errorJSON(c, http.StatusBadRequest, "Cannot demote or deactivate yourself")
		return
	}

	updates := map[string]any{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Bio != "" {
		updates["bio"] = req.Bio
	}
	if req.Email != "" {
		email := strings.ToLower(req.Email)
		var taken int64
		if err := s.db.Model(&User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&taken).Error; err != nil {
			s.internalError(c, err, "Failed to check email")
			return
		}
		if taken > 0 {
			errorJSON(c, http.StatusConflict, "Email already registered")
			return
		}
		updates["email"] = email
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsAdmin != nil {
		updates["is_admin"] = *req.IsAdmin
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			s.internalError(c, err, "Failed to update user")
			return
		}
	}

	var fresh User
	if err := FindByID(s.db, user.ID, &fresh); err != nil {
		s.internalError(c, err, "Failed to reload user")
		return
	}
	c.JSON(http.StatusOK, fresh.toModel())
}

// deleteUser removes an account and everything it owns (admin only)
func (s *Server) deleteUser(c *gin.Context) {
	caller := currentUser(c)
	id := c.Param("id")
	if id == caller.ID {
		errorJSON(c, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user User
		if err := FindByID(tx, id, &user); err != nil {
			return err
		}

		wallets := tx.Model(&Wallet{}).Select("id").Where("user_id = ?", user.ID)
		tickets := tx.Model(&Ticket{}).Select("id").Where("user_id = ?", user.ID)
		steps := []struct {
			model any
			where string
			arg   any
		}{
			{&Transaction{}, "wallet_id IN (?)", wallets},
			{&Wallet{}, "user_id = ?", user.ID},
			{&TicketReply{}, "ticket_id IN (?)", tickets},
			{&Ticket{}, "user_id = ?", user.ID},
			{&LoginAttempt{}, "user_id = ?", user.ID},
			{&ResetToken{}, "user_id = ?", user.ID},
		}
		for _, step := range steps {
			if err := tx.Where(step.where, step.arg).Delete(step.model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		errorJSON(c, http.StatusNotFound, "User not found")
		return
	case err != nil:
		s.internalError(c, err, "Failed to delete user")
		return
	}

	s.logger.Warn().Str("user_id", id).Str("by", caller.Username).Msg("User deleted")
	c.JSON(http.StatusOK, models.Message{Message: "User deleted"})
}
