package config

type StoreConfig interface {
	GetStoreBackend() string
	GetStorePath() string
	GetRedisAddr() string
	GetStorePrefix() string
}

type Store struct {
	source
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() string {
	return s.get("STORE_BACKEND", "sqlite")
}

func (s Store) GetStorePath() string {
	return s.get("STORE_PATH", "./data/congregate.db")
}

func (s Store) GetRedisAddr() string {
	return s.get("REDIS_ADDR", "localhost:6379")
}

// GetStorePrefix namespaces every persisted key. Bump the version segment
// when the cached layout changes so old blobs are never read.
func (s Store) GetStorePrefix() string {
	return s.get("STORE_PREFIX", "congregate:v1:")
}
