package tenantdata

import (
	"context"
	"encoding/json"

	"github.com/ValdemirJunior2020/churchApp-Saas/members"
	"github.com/ValdemirJunior2020/churchApp-Saas/store"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
)

// envelope is the stored form of one collection. TenantID is checked on
// read so a blob can never surface under another tenant.
type envelope struct {
	TenantID   string             `json:"tenant_id"`
	Collection tenants.Collection `json:"collection"`
	Items      json.RawMessage    `json:"items"`
}

func (c *Cache) persist(ctx context.Context, scope tenants.Scope, gen uint64, col tenants.Collection, items any) {
	raw, err := json.Marshal(items)
	if err != nil {
		c.logger.Error().Err(err).Str("collection", string(col)).Msg("failed to encode collection")
		return
	}
	blob, err := json.Marshal(envelope{TenantID: scope.TenantID, Collection: col, Items: raw})
	if err != nil {
		c.logger.Error().Err(err).Str("collection", string(col)).Msg("failed to encode collection")
		return
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if g, ok := c.generationFor(scope); !ok || g != gen {
		return
	}
	if err := c.store.Set(ctx, store.CollectionKey(scope.TenantID, string(col)), string(blob)); err != nil {
		c.logger.Warn().Err(err).Str("collection", string(col)).Msg("collection kept in memory only")
	}
}

// loadStored publishes every collection found in the store for scope.
func (c *Cache) loadStored(ctx context.Context, scope tenants.Scope, gen uint64) {
	for _, col := range tenants.AllCollections {
		raw, ok := c.readStored(ctx, scope, col)
		if !ok {
			continue
		}
		var apply func(*Snapshot)
		switch col {
		case tenants.Config:
			var cfg tenants.TenantConfig
			if json.Unmarshal(raw, &cfg) == nil {
				apply = func(d *Snapshot) { d.Config = &cfg }
			}
		case tenants.DonationLinks:
			var links []tenants.DonationLink
			if json.Unmarshal(raw, &links) == nil {
				apply = func(d *Snapshot) { d.DonationLinks = links }
			}
		case tenants.Events:
			var events []tenants.Event
			if json.Unmarshal(raw, &events) == nil {
				apply = func(d *Snapshot) { d.Events = events }
			}
		case tenants.Members:
			var list []members.Member
			if json.Unmarshal(raw, &list) == nil {
				apply = func(d *Snapshot) { d.Members = list }
			}
		}
		if apply == nil {
			c.logger.Warn().Str("collection", string(col)).Msg("ignoring unreadable cached collection")
			continue
		}
		if c.install(scope, gen, col, apply) != nil {
			return
		}
	}
}

func (c *Cache) readStored(ctx context.Context, scope tenants.Scope, col tenants.Collection) (json.RawMessage, bool) {
	blob, ok, err := c.store.Get(ctx, store.CollectionKey(scope.TenantID, string(col)))
	if err != nil {
		c.logger.Warn().Err(err).Str("collection", string(col)).Msg("cached collection unavailable")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil || env.TenantID != scope.TenantID || env.Collection != col {
		c.logger.Warn().Str("collection", string(col)).Msg("ignoring cached collection of another tenant or format")
		return nil, false
	}
	return env.Items, true
}
