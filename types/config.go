package types

// TenantConfig carries the per-tenant gate thresholds. It is read-only
// within a processing cycle and safe to cache for the cycle's duration.
type TenantConfig struct {
	TenantID string `json:"tenant_id"`

	MinimumThreshold float64 `json:"minimum_threshold"` // creation: net balance must exceed
	GraceDays        int     `json:"grace_days"`        // creation: overdue grace period
	StatuteCountry   string  `json:"statute_country"`   // jurisdiction key for the limitation table

	MaxTouchesTotal      int `json:"max_touches_total"`
	MaxTouchesPerChannel int `json:"max_touches_per_channel"`
	TouchPeriodDays      int `json:"touch_period_days"` // rolling window for the touch cap

	LegalThreshold    float64 `json:"legal_threshold"`
	WriteOffThreshold float64 `json:"write_off_threshold"`

	// ConfidenceThreshold below which classifications collapse to UNCLEAR.
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	// StatuteYears overrides the default limitation table when set.
	StatuteYears map[string]int `json:"statute_years,omitempty"`
}

// DefaultStatuteYears maps jurisdiction to limitation period in years.
// Configurable per tenant via TenantConfig.StatuteYears.
var DefaultStatuteYears = map[string]int{
	"UK-EW":   6, // England and Wales
	"UK-SCOT": 5,
	"IE":      6,
	"DE":      3,
	"FR":      5,
}

func DefaultTenantConfig(tenantID string) TenantConfig {
	cfg := TenantConfig{TenantID: tenantID}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued thresholds with the platform defaults.
func (c *TenantConfig) ApplyDefaults() {
	if c.MinimumThreshold == 0 {
		c.MinimumThreshold = 50
	}
	if c.GraceDays == 0 {
		c.GraceDays = 14
	}
	if c.StatuteCountry == "" {
		c.StatuteCountry = "UK-EW"
	}
	if c.MaxTouchesTotal == 0 {
		c.MaxTouchesTotal = 12
	}
	if c.MaxTouchesPerChannel == 0 {
		c.MaxTouchesPerChannel = 5
	}
	if c.TouchPeriodDays == 0 {
		c.TouchPeriodDays = 90
	}
	if c.LegalThreshold == 0 {
		c.LegalThreshold = 500
	}
	if c.WriteOffThreshold == 0 {
		c.WriteOffThreshold = 25
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = 0.5
	}
}

// StatuteLimitYears resolves the limitation period for this tenant's
// jurisdiction, honoring per-tenant overrides.
func (c *TenantConfig) StatuteLimitYears() (int, bool) {
	if c.StatuteYears != nil {
		if y, ok := c.StatuteYears[c.StatuteCountry]; ok {
			return y, true
		}
	}
	y, ok := DefaultStatuteYears[c.StatuteCountry]
	return y, ok
}

// Validate reports a ConfigurationError for any missing required threshold.
// A failed validation aborts that tenant's cycle; other tenants are unaffected.
func (c *TenantConfig) Validate() error {
	if c.TenantID == "" {
		return &ConfigurationError{Field: "tenant_id"}
	}
	if c.MinimumThreshold <= 0 {
		return &ConfigurationError{TenantID: c.TenantID, Field: "minimum_threshold"}
	}
	if c.GraceDays <= 0 {
		return &ConfigurationError{TenantID: c.TenantID, Field: "grace_days"}
	}
	if _, ok := c.StatuteLimitYears(); !ok {
		return &ConfigurationError{TenantID: c.TenantID, Field: "statute_country"}
	}
	if c.MaxTouchesTotal <= 0 || c.MaxTouchesPerChannel <= 0 || c.TouchPeriodDays <= 0 {
		return &ConfigurationError{TenantID: c.TenantID, Field: "touch_caps"}
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return &ConfigurationError{TenantID: c.TenantID, Field: "confidence_threshold"}
	}
	return nil
}
