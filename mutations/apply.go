package mutations

import (
	"context"
	"fmt"
	"strings"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/ValdemirJunior2020/churchApp-Saas/members"
	"github.com/ValdemirJunior2020/churchApp-Saas/sessions"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"github.com/google/uuid"
)

func newRecordID() string {
	return uuid.New().String()
}

// mutation is one Mutate call holding its collection lock.
type mutation struct {
	*Coordinator
	session sessions.Session
	op      Operation
	record  map[string]any
}

func (m mutation) code() string {
	return m.session.TenantCode
}

func (m mutation) recordID(aliases ...string) (string, error) {
	id := tenants.NewFields(m.record).String(append([]string{"id"}, aliases...)...)
	if id == "" {
		return "", fmt.Errorf("%w: id is required", apperr.ErrInvalidInput)
	}
	return id, nil
}

func (m mutation) config(ctx context.Context) (string, error) {
	if m.op != Update {
		return "", fmt.Errorf("%w: church settings can only be updated", apperr.ErrUnsupported)
	}
	cfg := tenants.DefaultConfig(m.session.ChurchName)
	if current := m.cache.Snapshot(tenants.AdminView).Config; current != nil {
		cfg = *current
	}
	cfg = cfg.Merge(m.record)
	if cfg.ChurchName == "" {
		return "", fmt.Errorf("%w: church name is required", apperr.ErrInvalidInput)
	}
	return m.session.TenantID, m.writer.SaveChurch(ctx, m.code(), cfg.Record())
}

// donationLinks rewrites the whole list, so it starts from a fresh read.
func (m mutation) donationLinks(ctx context.Context) (string, error) {
	snap, err := m.cache.Refresh(ctx, tenants.DonationLinks)
	if err != nil {
		return "", err
	}
	links := snap.DonationLinks

	var id string
	switch m.op {
	case Create:
		link := tenants.DonationLink{ID: m.newID(), SortOrder: nextSortOrder(links), IsActive: true}.Merge(m.record)
		if err := validateLink(link); err != nil {
			return "", err
		}
		links = append(links, link)
		id = link.ID
	case Update, Delete:
		if id, err = m.recordID("donation_id", "link_id"); err != nil {
			return "", err
		}
		i := indexOfLink(links, id)
		if i < 0 {
			return "", fmt.Errorf("%w: no donation link %s", apperr.ErrInvalidInput, id)
		}
		if m.op == Delete {
			links[i].IsActive = false
			break
		}
		links[i] = links[i].Merge(m.record)
		if err := validateLink(links[i]); err != nil {
			return "", err
		}
	}

	tenants.SortDonationLinks(links)
	items := make([]map[string]any, 0, len(links))
	for _, l := range links {
		items = append(items, l.Record())
	}
	return id, m.writer.SaveDonationLinks(ctx, m.code(), items)
}

func (m mutation) events(ctx context.Context) (string, error) {
	if m.op == Create {
		e := tenants.Event{ID: m.newID(), IsActive: true}.Merge(m.record)
		if e.Title == "" {
			return "", fmt.Errorf("%w: event title is required", apperr.ErrInvalidInput)
		}
		return e.ID, m.writer.UpsertEvent(ctx, m.code(), e.Record())
	}

	id, err := m.recordID("event_id")
	if err != nil {
		return "", err
	}
	if m.op == Delete {
		return id, m.writer.DeleteEvent(ctx, m.code(), id)
	}
	snap, err := m.cache.Refresh(ctx, tenants.Events)
	if err != nil {
		return "", err
	}
	existing, ok := findEvent(snap.Events, id)
	if !ok {
		return "", fmt.Errorf("%w: no event %s", apperr.ErrInvalidInput, id)
	}
	e := existing.Merge(m.record)
	if e.Title == "" {
		return "", fmt.Errorf("%w: event title is required", apperr.ErrInvalidInput)
	}
	return id, m.writer.UpsertEvent(ctx, m.code(), e.Record())
}

// members re-reads the member list before every create or update so the
// uniqueness check never runs against a stale cache.
func (m mutation) members(ctx context.Context) (string, error) {
	if m.op == Delete {
		id, err := m.recordID("member_id", "user_id")
		if err != nil {
			return "", err
		}
		if id == m.session.UserID {
			return "", fmt.Errorf("%w: you cannot remove your own account", apperr.ErrInvalidInput)
		}
		return id, m.writer.DeleteMember(ctx, m.code(), id)
	}

	snap, err := m.cache.Refresh(ctx, tenants.Members)
	if err != nil {
		return "", err
	}

	var candidate members.Member
	if m.op == Create {
		candidate = members.Member{ID: m.newID(), Role: members.RoleMember, IsActive: true}.Merge(m.record)
	} else {
		id, err := m.recordID("member_id", "user_id")
		if err != nil {
			return "", err
		}
		existing, ok := findMember(snap.Members, id)
		if !ok {
			return "", fmt.Errorf("%w: no member %s", apperr.ErrInvalidInput, id)
		}
		candidate = existing.Merge(m.record)
	}
	if err := validateMember(candidate); err != nil {
		return "", err
	}
	if other, dup := members.FindConflict(snap.Members, candidate); dup {
		return "", fmt.Errorf("%w: phone or email already used by %s", apperr.ErrDuplicate, firstNonEmpty(other.Name, other.ID))
	}

	if m.op == Create {
		return candidate.ID, m.writer.CreateMember(ctx, m.code(), candidate.Record())
	}
	return candidate.ID, m.writer.UpdateMember(ctx, m.code(), candidate.Record())
}

func validateLink(l tenants.DonationLink) error {
	if l.Label == "" {
		return fmt.Errorf("%w: donation label is required", apperr.ErrInvalidInput)
	}
	if !strings.HasPrefix(l.URL, "https://") && !strings.HasPrefix(l.URL, "http://") {
		return fmt.Errorf("%w: donation url must be an http(s) link", apperr.ErrInvalidInput)
	}
	return nil
}

func validateMember(mem members.Member) error {
	if mem.Phone == "" && mem.Email == "" {
		return fmt.Errorf("%w: phone or email is required", apperr.ErrInvalidInput)
	}
	if mem.Secret != "" {
		if err := members.ValidateSecret(mem.Secret); err != nil {
			return fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
		}
	}
	return nil
}

func nextSortOrder(links []tenants.DonationLink) int {
	next := 1
	for _, l := range links {
		if l.SortOrder >= next {
			next = l.SortOrder + 1
		}
	}
	return next
}

func indexOfLink(links []tenants.DonationLink, id string) int {
	for i, l := range links {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func findEvent(list []tenants.Event, id string) (tenants.Event, bool) {
	for _, e := range list {
		if e.ID == id {
			return e, true
		}
	}
	return tenants.Event{}, false
}

func findMember(list []members.Member, id string) (members.Member, bool) {
	for _, mem := range list {
		if mem.ID == id {
			return mem, true
		}
	}
	return members.Member{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
