package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bankctl-dev/bankctl/internal/models"
)

// DefaultTransactionLimit is the page size used when none is given
const DefaultTransactionLimit = 50

// Transactions wraps the /transactions endpoints
type Transactions struct {
	base
}

// List returns the caller's most recent transactions
func (t *Transactions) List(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}

	var txs []models.Transaction
	if err := t.do(ctx, http.MethodGet, "/transactions/", limitQuery(limit), nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// Get returns one transaction
func (t *Transactions) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := t.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(transactionID), nil, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create records a transaction and applies it to the wallet (admin only)
func (t *Transactions) Create(ctx context.Context, tx models.TransactionInput) (*models.Transaction, error) {
	var created models.Transaction
	if err := t.do(ctx, http.MethodPost, "/transactions/", nil, tx, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update changes the description or status of a transaction (admin only)
func (t *Transactions) Update(ctx context.Context, transactionID string, tx models.TransactionInput) (*models.Transaction, error) {
	var updated models.Transaction
	if err := t.do(ctx, http.MethodPut, "/transactions/"+url.PathEscape(transactionID), nil, tx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a transaction record (admin only)
func (t *Transactions) Delete(ctx context.Context, transactionID string) error {
	return t.do(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(transactionID), nil, nil, nil)
}
