package service

import (
	"context"

	"github.com/mistriapp/mistri/server/authz"
	"github.com/mistriapp/mistri/server/contexts/ctxerr"
	"github.com/mistriapp/mistri/server/contexts/viewer"
	"github.com/mistriapp/mistri/server/mistri"
)

func (svc *Service) PlatformFeeConfig(ctx context.Context) (*mistri.PlatformFeeConfig, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsAdmin() {
		return nil, authz.ForbiddenWithInternal("fee config is admin-only", vc.User, "fee_config", "read")
	}

	cfg, err := svc.ds.PlatformFeeConfig(ctx)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "load fee config")
	}
	return cfg, nil
}

func (svc *Service) ModifyPlatformFeeConfig(ctx context.Context, cfg mistri.PlatformFeeConfig) error {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsAdmin() {
		return authz.ForbiddenWithInternal("fee config is admin-only", vc.User, "fee_config", "write")
	}

	invalid := &mistri.InvalidArgumentError{}
	if cfg.BaseCommissionPercent < 0 || cfg.BaseCommissionPercent > 100 {
		invalid.Append("base_commission_percent", "must be between 0 and 100")
	}
	if cfg.DynamicMultiplier < 0 {
		invalid.Append("dynamic_multiplier", "must not be negative")
	}
	if invalid.HasErrors() {
		return ctxerr.Wrap(ctx, invalid)
	}

	if err := svc.ds.SavePlatformFeeConfig(ctx, &cfg); err != nil {
		return ctxerr.Wrap(ctx, err, "save fee config")
	}
	return nil
}
