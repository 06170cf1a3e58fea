package services

import (
	"context"
	"net/http"

	"github.com/bankctl-dev/bankctl/internal/models"
)

// TwoFactor wraps the /2fa endpoints
type TwoFactor struct {
	base
}

type codeBody struct {
	Code string `json:"code"`
}

// Status reports whether 2FA is enabled; while it is not, the response
// carries a provisioning secret
func (t *TwoFactor) Status(ctx context.Context) (*models.TwoFactorStatus, error) {
	var status models.TwoFactorStatus
	if err := t.do(ctx, http.MethodGet, "/2fa/status", nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Enable turns on 2FA after proving possession of the secret
func (t *TwoFactor) Enable(ctx context.Context, code string) (*models.TwoFactorStatus, error) {
	return t.post(ctx, "/2fa/enable", code)
}

// Disable turns off 2FA
func (t *TwoFactor) Disable(ctx context.Context, code string) (*models.TwoFactorStatus, error) {
	return t.post(ctx, "/2fa/disable", code)
}

// Verify checks a code without changing state
func (t *TwoFactor) Verify(ctx context.Context, code string) (*models.TwoFactorStatus, error) {
	return t.post(ctx, "/2fa/verify", code)
}

func (t *TwoFactor) post(ctx context.Context, path, code string) (*models.TwoFactorStatus, error) {
	var status models.TwoFactorStatus
	if err := t.do(ctx, http.MethodPost, path, nil, codeBody{Code: code}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
