package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bankctl-dev/bankctl/internal/models"
)

// Wallets wraps the /wallets endpoints
type Wallets struct {
	base
}

// Balance returns the balance of the caller's primary wallet
func (w *Wallets) Balance(ctx context.Context) (*models.Balance, error) {
	var balance models.Balance
	if err := w.do(ctx, http.MethodGet, "/wallets/balance", nil, nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// List returns every wallet owned by the caller
func (w *Wallets) List(ctx context.Context) ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := w.do(ctx, http.MethodGet, "/wallets/", nil, nil, &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}

// Get returns a single wallet
func (w *Wallets) Get(ctx context.Context, walletID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := w.do(ctx, http.MethodGet, "/wallets/"+url.PathEscape(walletID), nil, nil, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Create opens a new wallet
func (w *Wallets) Create(ctx context.Context, wallet models.WalletInput) (*models.Wallet, error) {
	var created models.Wallet
	if err := w.do(ctx, http.MethodPost, "/wallets/", nil, wallet, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update changes the currency of an empty wallet
func (w *Wallets) Update(ctx context.Context, walletID string, wallet models.WalletInput) (*models.Wallet, error) {
	var updated models.Wallet
	if err := w.do(ctx, http.MethodPut, "/wallets/"+url.PathEscape(walletID), nil, wallet, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an empty wallet
func (w *Wallets) Delete(ctx context.Context, walletID string) error {
	return w.do(ctx, http.MethodDelete, "/wallets/"+url.PathEscape(walletID), nil, nil, nil)
}

// Transfer moves funds to another user
func (w *Wallets) Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	var result models.TransferResult
	if err := w.do(ctx, http.MethodPost, "/wallets/transfer", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Deposit adds funds to the caller's wallet
func (w *Wallets) Deposit(ctx context.Context, req models.AmountRequest) (*models.WalletOperation, error) {
	var result models.WalletOperation
	if err := w.do(ctx, http.MethodPost, "/wallets/deposit", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Withdraw removes funds from the caller's wallet
func (w *Wallets) Withdraw(ctx context.Context, req models.AmountRequest) (*models.WalletOperation, error) {
	var result models.WalletOperation
	if err := w.do(ctx, http.MethodPost, "/wallets/withdraw", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Transactions lists the transactions of one wallet
func (w *Wallets) Transactions(ctx context.Context, walletID string, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	path := "/wallets/" + url.PathEscape(walletID) + "/transactions"
	if err := w.do(ctx, http.MethodGet, path, limitQuery(limit), nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
