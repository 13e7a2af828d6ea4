package tenants

// Assign overwrites *dst with the field named by aliases when raw has it.
// Absent fields leave *dst alone so partial edits keep the other values.
func (f Fields) Assign(dst *string, aliases ...string) {
	if f.Has(aliases...) {
		*dst = f.String(aliases...)
	}
}

// Merge applies the fields present in raw on top of c.
func (c TenantConfig) Merge(raw map[string]any) TenantConfig {
	f := NewFields(raw)
	f.Assign(&c.ChurchName, "church_name", "name")
	f.Assign(&c.Address, "address")
	f.Assign(&c.LogoURL, "logo_url", "logo")
	f.Assign(&c.MediaRef, "youtube_video_id", "video_id", "media_ref", "media_url")
	f.Assign(&c.PrimaryColor, "primary_color", "theme_color")
	f.Assign(&c.AccentColor, "accent_color", "secondary_color")
	return c
}

func (d DonationLink) Merge(raw map[string]any) DonationLink {
	f := NewFields(raw)
	f.Assign(&d.Label, "label", "name", "title")
	f.Assign(&d.URL, "url", "link", "href")
	f.Assign(&d.Provider, "provider", "platform")
	if order, ok := f.Int("sort_order", "order", "position"); ok {
		d.SortOrder = order
	}
	d.IsActive = f.Bool(d.IsActive, "is_active", "active")
	return d
}

func (e Event) Merge(raw map[string]any) Event {
	f := NewFields(raw)
	f.Assign(&e.Title, "title", "name")
	f.Assign(&e.StartTime, "start_time", "date_time_iso", "datetime", "date", "start")
	f.Assign(&e.Location, "location", "venue")
	f.Assign(&e.Description, "description", "details")
	e.IsActive = f.Bool(e.IsActive, "is_active", "active")
	return e
}
