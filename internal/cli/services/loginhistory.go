package services

import (
	"context"
	"net/http"

	"github.com/bankctl-dev/bankctl/internal/models"
)

const (
	DefaultLoginHistoryLimit = 50
	DefaultRecentLoginLimit  = 10
)

// LoginHistory wraps the /login-history endpoints
type LoginHistory struct {
	base
}

// List returns past login attempts
func (l *LoginHistory) List(ctx context.Context, limit int) ([]models.LoginHistory, error) {
	if limit <= 0 {
		limit = DefaultLoginHistoryLimit
	}
	return l.list(ctx, "/login-history/", limit)
}

// Recent returns the latest login attempts
func (l *LoginHistory) Recent(ctx context.Context, limit int) ([]models.LoginHistory, error) {
	if limit <= 0 {
		limit = DefaultRecentLoginLimit
	}
	return l.list(ctx, "/login-history/recent/", limit)
}

func (l *LoginHistory) list(ctx context.Context, path string, limit int) ([]models.LoginHistory, error) {
	var entries []models.LoginHistory
	if err := l.do(ctx, http.MethodGet, path, limitQuery(limit), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
