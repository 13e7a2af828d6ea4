package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
)

// Store is durable string key/value storage on the device. A missing key is
// reported as found=false with a nil error. Failures wrap apperr.ErrIO and
// callers treat them as "last known state unchanged".
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

const (
	SessionKey   = "session"
	DeviceKeyKey = "device_key"
)

// CollectionKey is the key of one cached collection for one tenant.
func CollectionKey(tenantID, collection string) string {
	return "tenant:" + tenantID + ":" + collection
}

type prefixed struct {
	inner  Store
	prefix string
}

var _ Store = (*prefixed)(nil)

// WithPrefix namespaces every key with prefix, e.g. "congregate:v1:", so a
// later layout can live next to the old one without reading its blobs.
func WithPrefix(inner Store, prefix string) Store {
	return &prefixed{inner: inner, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := p.inner.Get(ctx, p.prefix+key)
	return v, ok, ioErr(err)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return ioErr(p.inner.Set(ctx, p.prefix+key, value))
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return ioErr(p.inner.Remove(ctx, p.prefix+key))
}

func ioErr(err error) error {
	if err == nil || errors.Is(err, apperr.ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrIO, err)
}
