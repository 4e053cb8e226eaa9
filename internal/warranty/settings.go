package warranty

// TypeSpec describes one entry of the configured warranty type catalog.
type TypeSpec struct {
	Title          string
	DurationMonths int
	Description    string
}

// Settings is the warranty policy configuration. It is an immutable value:
// loaded once at startup (or per scheduler run) and injected, never mutated
// through a shared global.
type Settings struct {
	DefaultDurationMonths int
	Types                 map[string]TypeSpec
	RequireSerialNumber   bool
	RequireInvoiceNumber  bool
	AutoActivate          bool
	// ReminderOffsetDays lists how many days before expiry a reminder is
	// emitted, one reminder per offset per warranty per day.
	ReminderOffsetDays []int
}

// DefaultSettings mirrors the catalog shipped with the product.
func DefaultSettings() Settings {
	return Settings{
		DefaultDurationMonths: 12,
		Types: map[string]TypeSpec{
			"standard": {Title: "Standard warranty", DurationMonths: 12, Description: "Standard product warranty"},
			"gold":     {Title: "Gold warranty", DurationMonths: 24, Description: "Extended warranty with 24/7 support"},
		},
		RequireSerialNumber:  true,
		RequireInvoiceNumber: true,
		AutoActivate:         true,
		ReminderOffsetDays:   []int{30, 7, 1},
	}
}

// DurationFor resolves the duration for a registration: explicit duration
// wins, then the type catalog, then the default.
func (s Settings) DurationFor(reg Registration) int {
	if reg.DurationMonths > 0 {
		return reg.DurationMonths
	}
	if spec, ok := s.Types[reg.WarrantyType]; ok && spec.DurationMonths > 0 {
		return spec.DurationMonths
	}
	return s.DefaultDurationMonths
}
