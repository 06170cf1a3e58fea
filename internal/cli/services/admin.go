package services

import (
	"context"
	"net/http"

	"github.com/bankctl-dev/bankctl/internal/models"
)

// DefaultAdminTransactionLimit is the page size of the system-wide listing
const DefaultAdminTransactionLimit = 100

// Admin wraps the /admin endpoints
type Admin struct {
	base
}

// Transactions lists transactions across all users
func (a *Admin) Transactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultAdminTransactionLimit
	}

	var txs []models.Transaction
	if err := a.do(ctx, http.MethodGet, "/admin/transactions/", limitQuery(limit), nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// Users lists every account
func (a *Admin) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := a.do(ctx, http.MethodGet, "/admin/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Dashboard returns system-wide totals
func (a *Admin) Dashboard(ctx context.Context) (*models.AdminDashboard, error) {
	var dash models.AdminDashboard
	if err := a.do(ctx, http.MethodGet, "/admin/dashboard", nil, nil, &dash); err != nil {
		return nil, err
	}
	return &dash, nil
}

// SaveSettings stores system settings
func (a *Admin) SaveSettings(ctx context.Context, settings models.SystemSettings) (*models.Message, error) {
	var msg models.Message
	if err := a.do(ctx, http.MethodPost, "/admin/settings", nil, settings, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Settings returns system settings
func (a *Admin) Settings(ctx context.Context) (models.SystemSettings, error) {
	var settings models.SystemSettings
	if err := a.do(ctx, http.MethodGet, "/admin/settings", nil, nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}
