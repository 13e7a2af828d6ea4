package tenants

// TenantConfig is the single branding record per tenant. It is only ever
// overwritten, never deleted.
type TenantConfig struct {
	ChurchName   string `json:"church_name"`
	Address      string `json:"address,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
	MediaRef     string `json:"media_ref,omitempty"`
	PrimaryColor string `json:"primary_color,omitempty"`
	AccentColor  string `json:"accent_color,omitempty"`
}

// NormalizeConfig reads a backend church record. ok is false for a nil record.
func NormalizeConfig(raw map[string]any) (TenantConfig, bool) {
	if raw == nil {
		return TenantConfig{}, false
	}
	f := NewFields(raw)
	return TenantConfig{
		ChurchName:   f.String("church_name", "name"),
		Address:      f.String("address"),
		LogoURL:      f.String("logo_url", "logo"),
		MediaRef:     f.String("youtube_video_id", "video_id", "media_ref", "media_url"),
		PrimaryColor: f.String("primary_color", "theme_color"),
		AccentColor:  f.String("accent_color", "secondary_color"),
	}, true
}

// DefaultConfig is what a freshly created tenant starts with.
func DefaultConfig(churchName string) TenantConfig {
	return TenantConfig{
		ChurchName:   churchName,
		PrimaryColor: "#0B1220",
		AccentColor:  "#2563EB",
	}
}

// Record is the backend write shape.
func (c TenantConfig) Record() map[string]any {
	return map[string]any{
		"churchName":     c.ChurchName,
		"address":        c.Address,
		"logoUrl":        c.LogoURL,
		"youtubeVideoId": c.MediaRef,
		"primaryColor":   c.PrimaryColor,
		"accentColor":    c.AccentColor,
	}
}
