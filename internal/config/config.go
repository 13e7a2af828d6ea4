package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	GatewayConfig
	SessionConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Gateway
	Sessions
	Store
}

// New returns a Config read from environment variables only.
func New() Config {
	return newMainConfig(source{})
}

// Load returns a Config whose defaults are overlaid by the YAML file at path.
// Environment variables still take precedence over the file.
// An empty path behaves like New.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}
	values := make(map[string]string)
	if err := yaml.Unmarshal(bytes, &values); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}
	return newMainConfig(source{file: values}), nil
}

func newMainConfig(s source) mainConfig {
	return mainConfig{
		EnvVars:  EnvVars{s},
		Gateway:  Gateway{s},
		Sessions: Sessions{s},
		Store:    Store{s},
	}
}

// source resolves a key from the environment, then the config file, then
// the supplied default.
type source struct {
	file map[string]string
}

func (s source) get(key, defaultValue string) string {
	if value, ok := s.file[key]; ok && value != "" {
		defaultValue = value
	}
	return GetEnv(key, defaultValue)
}
