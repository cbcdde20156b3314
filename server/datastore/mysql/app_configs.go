package mysql

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/mistriapp/mistri/server/mistri"
)

// The fee config is a single row keyed 1, seeded by the schema.

func (ds *Datastore) PlatformFeeConfig(ctx context.Context) (*mistri.PlatformFeeConfig, error) {
	var cfg mistri.PlatformFeeConfig
	err := sqlx.GetContext(ctx, ds.db, &cfg, `
SELECT base_commission_percent, dynamic_multiplier, is_system_free_mode
FROM platform_fee_config
WHERE id = 1
`)
	if err != nil {
		return nil, &mistri.PersistenceError{Op: "select fee config", Err: err}
	}
	return &cfg, nil
}

func (ds *Datastore) SavePlatformFeeConfig(ctx context.Context, cfg *mistri.PlatformFeeConfig) error {
	_, err := ds.db.ExecContext(ctx, `
UPDATE platform_fee_config
SET base_commission_percent = ?, dynamic_multiplier = ?, is_system_free_mode = ?
WHERE id = 1
`, cfg.BaseCommissionPercent, cfg.DynamicMultiplier, cfg.IsSystemFreeMode)
	if err != nil {
		return &mistri.PersistenceError{Op: "save fee config", Err: err}
	}
	return nil
}
