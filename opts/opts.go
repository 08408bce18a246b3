// Package opts builds the immutable filter set passed to the proxy service.
//
// A Builder accumulates filters in any order; Build validates the combination
// and returns an Opts value that the fetcher serializes into query
// parameters. Unset filters simply leave the corresponding dimension
// unconstrained.
package opts

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/pubproxy/pubproxy-go/apierrors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Builder accumulates filter settings for Build to validate.
type Builder struct {
	apiKey        string
	level         Level
	protocol      Protocol
	countries     []string
	notCountries  []string
	lastChecked   time.Duration
	port          int
	timeToConnect time.Duration
	cookies       *bool
	google        *bool
	https         *bool
	post          *bool
	referer       *bool
	userAgent     *bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// APIKey attaches a premium API key, lifting the free-tier limits.
func (b *Builder) APIKey(key string) *Builder {
	b.apiKey = key
	return b
}

// Level filters by anonymity level.
func (b *Builder) Level(level Level) *Builder {
	b.level = level
	return b
}

// Protocol filters by proxy protocol.
func (b *Builder) Protocol(protocol Protocol) *Builder {
	b.protocol = protocol
	return b
}

// Countries restricts results to the given ISO 3166-1 alpha-2 codes.
// Mutually exclusive with NotCountries.
func (b *Builder) Countries(codes ...string) *Builder {
	b.countries = append(b.countries, codes...)
	return b
}

// NotCountries excludes the given ISO 3166-1 alpha-2 codes.
// Mutually exclusive with Countries.
func (b *Builder) NotCountries(codes ...string) *Builder {
	b.notCountries = append(b.notCountries, codes...)
	return b
}

// LastChecked keeps only proxies verified within d. The service accepts 1 to
// 1000 minutes with minute resolution.
func (b *Builder) LastChecked(d time.Duration) *Builder {
	b.lastChecked = d
	return b
}

// Port keeps only proxies listening on the given port.
func (b *Builder) Port(port int) *Builder {
	b.port = port
	return b
}

// TimeToConnect keeps only proxies that connected within d during the
// service's checks. The service accepts 1 to 60 seconds with second
// resolution.
func (b *Builder) TimeToConnect(d time.Duration) *Builder {
	b.timeToConnect = d
	return b
}

// Cookies filters on cookie support.
func (b *Builder) Cookies(v bool) *Builder {
	b.cookies = &v
	return b
}

// ConnectsToGoogle filters on whether the proxy reached google during checks.
func (b *Builder) ConnectsToGoogle(v bool) *Builder {
	b.google = &v
	return b
}

// HTTPS filters on HTTPS support.
func (b *Builder) HTTPS(v bool) *Builder {
	b.https = &v
	return b
}

// Post filters on POST support.
func (b *Builder) Post(v bool) *Builder {
	b.post = &v
	return b
}

// Referer filters on referer support.
func (b *Builder) Referer(v bool) *Builder {
	b.referer = &v
	return b
}

// ForwardsUserAgent filters on user-agent forwarding support.
func (b *Builder) ForwardsUserAgent(v bool) *Builder {
	b.userAgent = &v
	return b
}

// bounds is the shape handed to the validator; durations are converted to
// the service's unit granularity first so the tags mirror its documented
// ranges.
type bounds struct {
	LastCheckedMinutes   int64 `validate:"omitempty,min=1,max=1000"`
	TimeToConnectSeconds int64 `validate:"omitempty,min=1,max=60"`
	Port                 int   `validate:"omitempty,min=1,max=65535"`
}

// Build validates the accumulated filters and returns an immutable Opts.
// It fails with a ConfigurationError when both country lists are set, a
// numeric filter is negative or out of the service's range, or an enum value
// is unknown.
func (b *Builder) Build() (*Opts, error) {
	if len(b.countries) > 0 && len(b.notCountries) > 0 {
		return nil, apierrors.NewConfigurationError("country allow-list and deny-list are mutually exclusive")
	}

	if b.level != "" && !b.level.Valid() {
		return nil, apierrors.NewConfigurationError(fmt.Sprintf("unknown anonymity level %q", b.level))
	}

	if b.protocol != "" && !b.protocol.Valid() {
		return nil, apierrors.NewConfigurationError(fmt.Sprintf("unknown protocol %q", b.protocol))
	}

	if b.lastChecked < 0 || b.timeToConnect < 0 || b.port < 0 {
		return nil, apierrors.NewConfigurationError("numeric filters must not be negative")
	}

	for _, code := range append(append([]string{}, b.countries...), b.notCountries...) {
		if err := validateCountryCode(strings.ToUpper(code)); err != nil {
			return nil, apierrors.NewConfigurationError(err.Error())
		}
	}

	o := &Opts{
		apiKey:        b.apiKey,
		level:         b.level,
		protocol:      b.protocol,
		countries:     upperCopy(b.countries),
		notCountries:  upperCopy(b.notCountries),
		lastChecked:   b.lastChecked,
		port:          b.port,
		timeToConnect: b.timeToConnect,
		cookies:       copyBool(b.cookies),
		google:        copyBool(b.google),
		https:         copyBool(b.https),
		post:          copyBool(b.post),
		referer:       copyBool(b.referer),
		userAgent:     copyBool(b.userAgent),
	}

	check := bounds{
		LastCheckedMinutes:   int64(o.lastChecked / time.Minute),
		TimeToConnectSeconds: int64(o.timeToConnect / time.Second),
		Port:                 o.port,
	}
	if o.lastChecked > 0 && check.LastCheckedMinutes == 0 {
		// Sub-minute values would silently serialize to 0, which the
		// service treats as unset.
		return nil, apierrors.NewConfigurationError("last-checked filter must be at least one minute")
	}
	if o.timeToConnect > 0 && check.TimeToConnectSeconds == 0 {
		return nil, apierrors.NewConfigurationError("time-to-connect filter must be at least one second")
	}
	if err := validate.Struct(check); err != nil {
		return nil, apierrors.NewConfigurationError(fmt.Sprintf("filter out of range: %v", err))
	}

	return o, nil
}

// Opts is an immutable, validated set of proxy filters. Construct via
// Builder.Build.
type Opts struct {
	apiKey        string
	level         Level
	protocol      Protocol
	countries     []string
	notCountries  []string
	lastChecked   time.Duration
	port          int
	timeToConnect time.Duration
	cookies       *bool
	google        *bool
	https         *bool
	post          *bool
	referer       *bool
	userAgent     *bool
}

// Default returns an Opts with no filters set, matching any proxy.
func Default() *Opts {
	o, err := NewBuilder().Build()
	if err != nil {
		panic(err) // empty builder always validates
	}
	return o
}

// HasAPIKey reports whether a premium API key is attached.
func (o *Opts) HasAPIKey() bool {
	return o.apiKey != ""
}

// Values serializes the filters into the service's query parameters.
// The per-request limit parameter is appended by the fetch engine, which
// knows the chunk size.
func (o *Opts) Values() url.Values {
	v := url.Values{}
	v.Set("format", "json")

	if o.apiKey != "" {
		v.Set("api", o.apiKey)
	}
	if o.level != "" {
		v.Set("level", string(o.level))
	}
	if o.protocol != "" {
		v.Set("type", string(o.protocol))
	}
	if len(o.countries) > 0 {
		v.Set("country", strings.Join(o.countries, ","))
	}
	if len(o.notCountries) > 0 {
		v.Set("not_country", strings.Join(o.notCountries, ","))
	}
	if o.lastChecked > 0 {
		v.Set("last_check", strconv.FormatInt(int64(o.lastChecked/time.Minute), 10))
	}
	if o.port > 0 {
		v.Set("port", strconv.Itoa(o.port))
	}
	if o.timeToConnect > 0 {
		v.Set("speed", strconv.FormatInt(int64(o.timeToConnect/time.Second), 10))
	}

	setBool(v, "cookies", o.cookies)
	setBool(v, "google", o.google)
	setBool(v, "https", o.https)
	setBool(v, "post", o.post)
	setBool(v, "referer", o.referer)
	setBool(v, "user_agent", o.userAgent)

	return v
}

func setBool(v url.Values, key string, val *bool) {
	if val == nil {
		return
	}
	v.Set(key, strconv.FormatBool(*val))
}

func upperCopy(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = strings.ToUpper(c)
	}
	return out
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
