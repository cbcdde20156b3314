// Package fees computes the commission split applied when a job settles.
package fees

import (
	"math"

	"github.com/mistriapp/mistri/server/mistri"
)

// Split is the outcome of the fee computation for a settled job.
// PlatformFee + WorkerEarnings always equals the job price.
type Split struct {
	PlatformFee    int
	WorkerEarnings int
}

// Calculate computes the platform fee and worker earnings for price using
// cfg. It is invoked exactly once per job, at the moment of completion, with
// whichever fee config is active at that time. Free mode zeroes the fee
// regardless of the commission percent.
func Calculate(cfg *mistri.PlatformFeeConfig, price int) Split {
	rate := 0.0
	if cfg != nil && !cfg.IsSystemFreeMode {
		rate = cfg.BaseCommissionPercent * cfg.DynamicMultiplier
	}

	fee := int(math.Round(float64(price) * rate / 100))
	return Split{
		PlatformFee:    fee,
		WorkerEarnings: price - fee,
	}
}
