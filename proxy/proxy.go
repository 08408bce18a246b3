// Package proxy models the proxy records returned by the service and their
// decoding from its JSON envelope.
package proxy

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/pubproxy/pubproxy-go/opts"
)

// lastCheckedLayout is the timestamp format the service uses.
const lastCheckedLayout = "2006-01-02 15:04:05"

// Supports lists the capabilities the service verified for a proxy.
type Supports struct {
	HTTPS             bool `json:"https"`
	Get               bool `json:"get"`
	Post              bool `json:"post"`
	Cookies           bool `json:"cookies"`
	Referer           bool `json:"referer"`
	ForwardsUserAgent bool `json:"user_agent"`
	ConnectsToGoogle  bool `json:"google"`
}

// Proxy is one proxy record returned by the service. It is a plain value;
// two records with equal fields are the same proxy.
type Proxy struct {
	IP            string        `json:"ip"`
	Port          int           `json:"port"`
	Country       string        `json:"country"`
	LastChecked   time.Time     `json:"last_checked"`
	Level         opts.Level    `json:"level"`
	Protocol      opts.Protocol `json:"protocol"`
	TimeToConnect time.Duration `json:"time_to_connect"`
	Supports      Supports      `json:"supports"`
}

// Address returns the "ip:port" form of the proxy.
func (p *Proxy) Address() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

// URL returns the full URL form, e.g. "socks5://1.2.3.4:1080".
func (p *Proxy) URL() string {
	proto := p.Protocol
	if proto == "" {
		proto = opts.ProtocolHTTP
	}
	return fmt.Sprintf("%s://%s", proto, p.Address())
}

type envelope struct {
	Data []rawProxy `json:"data"`
}

type rawProxy struct {
	IPPort      string      `json:"ipPort"`
	Country     string      `json:"country"`
	LastChecked string      `json:"last_checked"`
	Level       string      `json:"proxy_level"`
	Type        string      `json:"type"`
	Speed       string      `json:"speed"`
	Support     rawSupports `json:"support"`
}

type rawSupports struct {
	HTTPS     *int `json:"https"`
	Get       *int `json:"get"`
	Post      *int `json:"post"`
	Cookies   *int `json:"cookies"`
	Referer   *int `json:"referer"`
	UserAgent *int `json:"user_agent"`
	Google    *int `json:"google"`
}

// Decode parses the service's response envelope into proxy records, in the
// order the service returned them. Records whose country field is not a
// plausible ISO 3166-1 code are dropped; the service occasionally emits junk
// there. Any other malformed field fails the whole decode.
func Decode(body []byte) ([]Proxy, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}

	records := make([]Proxy, 0, len(env.Data))
	for _, raw := range env.Data {
		p, ok, err := raw.toProxy()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		records = append(records, p)
	}

	return records, nil
}

func (raw rawProxy) toProxy() (Proxy, bool, error) {
	if !plausibleCountry(raw.Country) {
		return Proxy{}, false, nil
	}

	host, portStr, err := net.SplitHostPort(raw.IPPort)
	if err != nil {
		return Proxy{}, false, fmt.Errorf("malformed ipPort %q: %w", raw.IPPort, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Proxy{}, false, fmt.Errorf("malformed port in %q", raw.IPPort)
	}

	lastChecked, err := time.Parse(lastCheckedLayout, raw.LastChecked)
	if err != nil {
		return Proxy{}, false, fmt.Errorf("malformed last_checked %q: %w", raw.LastChecked, err)
	}

	speedSecs, err := strconv.Atoi(raw.Speed)
	if err != nil || speedSecs < 0 {
		return Proxy{}, false, fmt.Errorf("malformed speed %q", raw.Speed)
	}

	return Proxy{
		IP:            host,
		Port:          port,
		Country:       raw.Country,
		LastChecked:   lastChecked,
		Level:         opts.Level(raw.Level),
		Protocol:      opts.Protocol(raw.Type),
		TimeToConnect: time.Duration(speedSecs) * time.Second,
		Supports: Supports{
			HTTPS:             flag(raw.Support.HTTPS),
			Get:               flag(raw.Support.Get),
			Post:              flag(raw.Support.Post),
			Cookies:           flag(raw.Support.Cookies),
			Referer:           flag(raw.Support.Referer),
			ForwardsUserAgent: flag(raw.Support.UserAgent),
			ConnectsToGoogle:  flag(raw.Support.Google),
		},
	}, true, nil
}

func plausibleCountry(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// null support flags are treated as false.
func flag(v *int) bool {
	return v != nil && *v == 1
}
