package store

import (
	"context"
	"database/sql"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
)

// FindActiveMarkup looks up the active markup configuration for a
// productType/currency pair. Returns (nil, nil) when none is active; callers
// must treat that as an error, never as a silent default.
func (s *Store) FindActiveMarkup(ctx context.Context, productType models.ProductType, currency string) (*models.MarkupConfig, error) {
	var cfg models.MarkupConfig
	err := s.db.GetContext(ctx, &cfg, `
		SELECT * FROM markup_configs
		WHERE product_type = $1 AND currency = $2 AND is_active
		ORDER BY created_at DESC
		LIMIT 1`,
		productType, currency)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
