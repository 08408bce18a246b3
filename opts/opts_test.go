package opts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubproxy/pubproxy-go/apierrors"
)

func TestBuilder_Build(t *testing.T) {
	testCases := []struct {
		name    string
		build   func() (*Opts, error)
		wantErr bool
	}{
		{
			name: "empty builder validates",
			build: func() (*Opts, error) {
				return NewBuilder().Build()
			},
		},
		{
			name: "kitchen sink validates",
			build: func() (*Opts, error) {
				return NewBuilder().
					APIKey("<key>").
					Level(LevelElite).
					Protocol(ProtocolSOCKS4).
					NotCountries("CH", "ES").
					LastChecked(10 * time.Minute).
					TimeToConnect(10 * time.Second).
					Port(8080).
					Cookies(true).
					ConnectsToGoogle(false).
					HTTPS(true).
					Post(false).
					Referer(true).
					ForwardsUserAgent(false).
					Build()
			},
		},
		{
			name: "allow and deny lists are mutually exclusive",
			build: func() (*Opts, error) {
				return NewBuilder().Countries("US").NotCountries("RU").Build()
			},
			wantErr: true,
		},
		{
			name: "unknown protocol",
			build: func() (*Opts, error) {
				return NewBuilder().Protocol("gopher").Build()
			},
			wantErr: true,
		},
		{
			name: "unknown level",
			build: func() (*Opts, error) {
				return NewBuilder().Level("transparent").Build()
			},
			wantErr: true,
		},
		{
			name: "negative last-checked",
			build: func() (*Opts, error) {
				return NewBuilder().LastChecked(-time.Minute).Build()
			},
			wantErr: true,
		},
		{
			name: "last-checked above service range",
			build: func() (*Opts, error) {
				return NewBuilder().LastChecked(1001 * time.Minute).Build()
			},
			wantErr: true,
		},
		{
			name: "sub-minute last-checked",
			build: func() (*Opts, error) {
				return NewBuilder().LastChecked(30 * time.Second).Build()
			},
			wantErr: true,
		},
		{
			name: "time-to-connect above service range",
			build: func() (*Opts, error) {
				return NewBuilder().TimeToConnect(61 * time.Second).Build()
			},
			wantErr: true,
		},
		{
			name: "negative port",
			build: func() (*Opts, error) {
				return NewBuilder().Port(-1).Build()
			},
			wantErr: true,
		},
		{
			name: "port above range",
			build: func() (*Opts, error) {
				return NewBuilder().Port(70000).Build()
			},
			wantErr: true,
		},
		{
			name: "bad country code",
			build: func() (*Opts, error) {
				return NewBuilder().Countries("USA").Build()
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := tc.build()
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, apierrors.KindConfiguration, apierrors.KindOf(err))
				assert.Nil(t, o)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, o)
		})
	}
}

func TestOpts_Values(t *testing.T) {
	t.Run("defaults carry only the format", func(t *testing.T) {
		v := Default().Values()
		assert.Equal(t, "json", v.Get("format"))
		assert.Len(t, v, 1)
	})

	t.Run("kitchen sink serializes the service's wire names", func(t *testing.T) {
		o, err := NewBuilder().
			APIKey("<key>").
			Level(LevelElite).
			Protocol(ProtocolSOCKS4).
			NotCountries("ch", "es").
			LastChecked(10 * time.Minute).
			TimeToConnect(10 * time.Second).
			Port(8080).
			Cookies(true).
			ConnectsToGoogle(false).
			HTTPS(true).
			Post(false).
			Referer(true).
			ForwardsUserAgent(false).
			Build()
		require.NoError(t, err)

		v := o.Values()
		assert.Equal(t, "<key>", v.Get("api"))
		assert.Equal(t, "elite", v.Get("level"))
		assert.Equal(t, "socks4", v.Get("type"))
		assert.Equal(t, "CH,ES", v.Get("not_country"))
		assert.Equal(t, "10", v.Get("last_check"))
		assert.Equal(t, "10", v.Get("speed"))
		assert.Equal(t, "8080", v.Get("port"))
		assert.Equal(t, "true", v.Get("cookies"))
		assert.Equal(t, "false", v.Get("google"))
		assert.Equal(t, "true", v.Get("https"))
		assert.Equal(t, "false", v.Get("post"))
		assert.Equal(t, "true", v.Get("referer"))
		assert.Equal(t, "false", v.Get("user_agent"))
		assert.Equal(t, "json", v.Get("format"))
	})

	t.Run("allow-list uses the country parameter", func(t *testing.T) {
		o, err := NewBuilder().Countries("US", "CA").Build()
		require.NoError(t, err)

		v := o.Values()
		assert.Equal(t, "US,CA", v.Get("country"))
		assert.Empty(t, v.Get("not_country"))
	})
}

func TestOpts_HasAPIKey(t *testing.T) {
	keyless, err := NewBuilder().Build()
	require.NoError(t, err)
	assert.False(t, keyless.HasAPIKey())

	keyed, err := NewBuilder().APIKey("<key>").Build()
	require.NoError(t, err)
	assert.True(t, keyed.HasAPIKey())
}
