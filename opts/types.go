package opts

import (
	"fmt"
	"time"
)

// Protocol is the proxy protocol filter accepted by the service.
type Protocol string

const (
	ProtocolHTTP   Protocol = "http"
	ProtocolSOCKS4 Protocol = "socks4"
	ProtocolSOCKS5 Protocol = "socks5"
)

// Valid reports whether p is one of the protocols the service understands.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolHTTP, ProtocolSOCKS4, ProtocolSOCKS5:
		return true
	default:
		return false
	}
}

// Level is the anonymity level filter. The service only distinguishes
// anonymous and elite; transparent proxies are never returned.
type Level string

const (
	LevelAnonymous Level = "anonymous"
	LevelElite     Level = "elite"
)

// Valid reports whether l is a level the service understands.
func (l Level) Valid() bool {
	switch l {
	case LevelAnonymous, LevelElite:
		return true
	default:
		return false
	}
}

// Bounds accepted by the service for the recency and connect-time filters.
const (
	MinLastChecked = 1 * time.Minute
	MaxLastChecked = 1000 * time.Minute

	MinTimeToConnect = 1 * time.Second
	MaxTimeToConnect = 60 * time.Second
)

func validateCountryCode(code string) error {
	if len(code) != 2 {
		return fmt.Errorf("country code %q is not ISO 3166-1 alpha-2", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("country code %q is not ISO 3166-1 alpha-2", code)
		}
	}
	return nil
}
