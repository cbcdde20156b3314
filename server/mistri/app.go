package mistri

// PlatformFeeConfig is the commission configuration read at settlement time.
// Settlement uses whichever config is active at the moment of completion,
// not a value pinned at job creation, so the provider is passed explicitly
// into the fee computation to keep it deterministic under test.
type PlatformFeeConfig struct {
	BaseCommissionPercent float64 `json:"base_commission_percent" db:"base_commission_percent"`
	DynamicMultiplier     float64 `json:"dynamic_multiplier" db:"dynamic_multiplier"`
	IsSystemFreeMode      bool    `json:"is_system_free_mode" db:"is_system_free_mode"`
}

// DefaultPlatformFeeConfig returns the fee configuration used until an admin
// changes it.
func DefaultPlatformFeeConfig() *PlatformFeeConfig {
	return &PlatformFeeConfig{
		BaseCommissionPercent: 10,
		DynamicMultiplier:     1.0,
	}
}
