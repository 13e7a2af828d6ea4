package sessions

import (
	"context"

	"github.com/ValdemirJunior2020/churchApp-Saas/store"
	"github.com/rs/zerolog"
)

// Repo persists the single device session.
type Repo interface {
	// Load returns ok=false when nothing usable is stored.
	Load(ctx context.Context) (Session, bool, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context) error
}

// StoreRepo keeps the session as a signed blob under store.SessionKey.
type StoreRepo struct {
	store  store.Store
	codec  *Codec
	logger zerolog.Logger
}

var _ Repo = (*StoreRepo)(nil)

func NewStoreRepo(s store.Store, codec *Codec, logger zerolog.Logger) *StoreRepo {
	return &StoreRepo{store: s, codec: codec, logger: logger}
}

func (r *StoreRepo) Load(ctx context.Context) (Session, bool, error) {
	blob, ok, err := r.store.Get(ctx, store.SessionKey)
	if err != nil || !ok {
		return Session{}, false, err
	}
	s, err := r.codec.Decode(blob)
	if err != nil {
		r.logger.Warn().Err(err).Msg("ignoring unreadable stored session")
		return Session{}, false, nil
	}
	return s, true, nil
}

func (r *StoreRepo) Save(ctx context.Context, s Session) error {
	blob, err := r.codec.Encode(s)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, store.SessionKey, blob)
}

func (r *StoreRepo) Delete(ctx context.Context) error {
	return r.store.Remove(ctx, store.SessionKey)
}
