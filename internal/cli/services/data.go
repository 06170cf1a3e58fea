package services

import (
	"context"
	"net/http"

	"github.com/bankctl-dev/bankctl/internal/models"
)

// Data wraps the /data management endpoints
type Data struct {
	base
}

// Stats returns record counts per table
func (d *Data) Stats(ctx context.Context) (*models.DataStats, error) {
	var stats models.DataStats
	if err := d.do(ctx, http.MethodGet, "/data/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ResetDatabase clears and reseeds the backing database
func (d *Data) ResetDatabase(ctx context.Context) (*models.DataStats, error) {
	var stats models.DataStats
	if err := d.do(ctx, http.MethodPost, "/data/reset-database", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
