package config

import "time"

type GatewayConfig interface {
	GetGatewayURL() string
	GetGatewayAPIKey() string
	GetGatewayTimeout() time.Duration
}

type Gateway struct {
	source
}

var _ GatewayConfig = Gateway{}

// GetGatewayURL is the backend web app endpoint every call is addressed to.
func (g Gateway) GetGatewayURL() string {
	return g.get("GAS_URL", "http://localhost:8787/exec")
}

func (g Gateway) GetGatewayAPIKey() string {
	return g.get("GAS_API_KEY", "")
}

func (g Gateway) GetGatewayTimeout() time.Duration {
	d, err := time.ParseDuration(g.get("GATEWAY_TIMEOUT", "20s"))
	if err != nil || d <= 0 {
		return 20 * time.Second
	}
	return d
}
