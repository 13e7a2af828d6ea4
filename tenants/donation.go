package tenants

import "sort"

type DonationLink struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	URL       string `json:"url"`
	Provider  string `json:"provider,omitempty"`
	SortOrder int    `json:"sort_order"`
	IsActive  bool   `json:"is_active"`
}

// NormalizeDonationLinks coerces backend rows, drops rows without an id,
// hides inactive rows outside AdminView and sorts by SortOrder.
// A missing or non-numeric sort order falls back to the row position.
func NormalizeDonationLinks(rows []map[string]any, view View) []DonationLink {
	links := make([]DonationLink, 0, len(rows))
	for i, raw := range rows {
		f := NewFields(raw)
		link := DonationLink{
			ID:       f.String("id", "donation_id", "link_id"),
			Label:    f.String("label", "name", "title"),
			URL:      f.String("url", "link", "href"),
			Provider: f.String("provider", "platform"),
			IsActive: f.Active(),
		}
		if link.ID == "" {
			continue
		}
		if order, ok := f.Int("sort_order", "order", "position"); ok {
			link.SortOrder = order
		} else {
			link.SortOrder = i + 1
		}
		if !link.IsActive && view != AdminView {
			continue
		}
		links = append(links, link)
	}
	SortDonationLinks(links)
	return links
}

// SortDonationLinks orders by SortOrder; ties keep insertion order.
func SortDonationLinks(links []DonationLink) {
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].SortOrder < links[j].SortOrder
	})
}

func (d DonationLink) Record() map[string]any {
	status := "ACTIVE"
	if !d.IsActive {
		status = "INACTIVE"
	}
	return map[string]any{
		"id":         d.ID,
		"donationId": d.ID,
		"label":      d.Label,
		"url":        d.URL,
		"provider":   d.Provider,
		"sortOrder":  d.SortOrder,
		"isActive":   d.IsActive,
		"status":     status,
	}
}

// FilterDonationLinks returns the links visible in view.
func FilterDonationLinks(links []DonationLink, view View) []DonationLink {
	out := make([]DonationLink, 0, len(links))
	for _, l := range links {
		if l.IsActive || view == AdminView {
			out = append(out, l)
		}
	}
	return out
}
