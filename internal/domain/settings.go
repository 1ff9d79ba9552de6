package domain

type Settings struct {
	// Nom affiché par le front.
	SiteName string `json:"siteName" validate:"required,max=80"`

	// En maintenance, seules les écritures admin passent.
	MaintenanceMode   bool `json:"maintenanceMode"`
	AllowRegistration bool `json:"allowRegistration"`
	AdsEnabled        bool `json:"adsEnabled"`

	DefaultPageSize int `json:"defaultPageSize" validate:"min=1,max=100"`

	// Concurrence des checks de maintenance (ajustable à chaud).
	MaxConcurrentChecks int `json:"maxConcurrentChecks" validate:"min=1,max=64"`

	// Contact affiché dans les pages légales.
	ContactEmail string `json:"contactEmail,omitempty" validate:"omitempty,email"`
}

func DefaultSettings() Settings {
	return Settings{
		SiteName:            "YEMEN FLIX",
		MaintenanceMode:     false,
		AllowRegistration:   true,
		AdsEnabled:          true,
		DefaultPageSize:     24,
		MaxConcurrentChecks: 4,
	}
}

// Public retire ce qui ne concerne que l'admin.
func (s Settings) Public() map[string]any {
	return map[string]any{
		"siteName":          s.SiteName,
		"maintenanceMode":   s.MaintenanceMode,
		"allowRegistration": s.AllowRegistration,
		"adsEnabled":        s.AdsEnabled,
		"defaultPageSize":   s.DefaultPageSize,
		"contactEmail":      s.ContactEmail,
	}
}
