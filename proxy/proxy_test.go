package proxy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubproxy/pubproxy-go/opts"
)

const sampleResponse = `{
  "data": [
    {
      "ipPort": "67.225.164.154:80",
      "ip": "67.225.164.154",
      "port": "80",
      "country": "US",
      "last_checked": "2020-12-13 20:06:41",
      "proxy_level": "elite",
      "type": "http",
      "speed": "10",
      "support": {
        "https": 0,
        "get": 1,
        "post": 1,
        "cookies": 1,
        "referer": 1,
        "user_agent": 1,
        "google": null
      }
    },
    {
      "ipPort": "89.24.76.185:32842",
      "ip": "89.24.76.185",
      "port": "32842",
      "country": "CZ",
      "last_checked": "2020-12-13 20:01:52",
      "proxy_level": "elite",
      "type": "socks5",
      "speed": "18",
      "support": {
        "https": 0,
        "get": 1,
        "post": 1,
        "cookies": 1,
        "referer": 1,
        "user_agent": 1,
        "google": 0
      }
    },
    {
      "ipPort": "1.2.3.4:1234",
      "ip": "1.2.3.4",
      "port": "1234",
      "country": "",
      "last_checked": "2020-12-13 00:00:00",
      "proxy_level": "elite",
      "type": "http",
      "speed": "0",
      "support": {
        "https": 0,
        "get": 1,
        "post": 1,
        "cookies": 1,
        "referer": 1,
        "user_agent": 1,
        "google": 0
      }
    }
  ]
}`

func TestDecode(t *testing.T) {
	records, err := Decode([]byte(sampleResponse))
	require.NoError(t, err)

	// The record with an empty country field is dropped.
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "67.225.164.154", first.IP)
	assert.Equal(t, 80, first.Port)
	assert.Equal(t, "US", first.Country)
	assert.Equal(t, opts.LevelElite, first.Level)
	assert.Equal(t, opts.ProtocolHTTP, first.Protocol)
	assert.Equal(t, 10*time.Second, first.TimeToConnect)
	assert.Equal(t, time.Date(2020, 12, 13, 20, 6, 41, 0, time.UTC), first.LastChecked)
	assert.True(t, first.Supports.Get)
	assert.True(t, first.Supports.Post)
	assert.True(t, first.Supports.ForwardsUserAgent)
	assert.False(t, first.Supports.HTTPS)
	// null support flags read as false
	assert.False(t, first.Supports.ConnectsToGoogle)

	second := records[1]
	assert.Equal(t, opts.ProtocolSOCKS5, second.Protocol)
	assert.Equal(t, "CZ", second.Country)
	assert.Equal(t, 18*time.Second, second.TimeToConnect)
}

func TestDecode_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "not json",
			body: "No proxy",
		},
		{
			name: "bad timestamp",
			body: `{"data":[{"ipPort":"1.2.3.4:80","country":"US","last_checked":"soon","proxy_level":"elite","type":"http","speed":"1","support":{}}]}`,
		},
		{
			name: "bad speed",
			body: `{"data":[{"ipPort":"1.2.3.4:80","country":"US","last_checked":"2020-12-13 20:06:41","proxy_level":"elite","type":"http","speed":"fast","support":{}}]}`,
		},
		{
			name: "bad ipPort",
			body: `{"data":[{"ipPort":"nonsense","country":"US","last_checked":"2020-12-13 20:06:41","proxy_level":"elite","type":"http","speed":"1","support":{}}]}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := Decode([]byte(tc.body))
			assert.Error(t, err)
			assert.Nil(t, records)
		})
	}
}

func TestDecode_EmptyData(t *testing.T) {
	records, err := Decode([]byte(`{"data":[]}`))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProxy_Address(t *testing.T) {
	p := Proxy{IP: "1.2.3.4", Port: 1080, Protocol: opts.ProtocolSOCKS5}
	assert.Equal(t, "1.2.3.4:1080", p.Address())
	assert.Equal(t, "socks5://1.2.3.4:1080", p.URL())

	unknown := Proxy{IP: "5.6.7.8", Port: 80}
	assert.Equal(t, "http://5.6.7.8:80", unknown.URL())
}
