package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_Do(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL, time.Second)

	query := url.Values{}
	query.Set("format", "json")
	query.Set("limit", "5")

	resp, err := transport.Do(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"data":[]}`, string(resp.Body))
	assert.Equal(t, "json", gotQuery.Get("format"))
	assert.Equal(t, "5", gotQuery.Get("limit"))
}

func TestHTTPTransport_PassesErrorStatusThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down for maintenance"))
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL, time.Second)

	// Error statuses are data for the classifier, not transport failures.
	resp, err := transport.Do(context.Background(), url.Values{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "down for maintenance", string(resp.Body))
}

func TestHTTPTransport_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	transport := NewHTTPTransport(server.URL, time.Second)

	resp, err := transport.Do(context.Background(), url.Values{})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestHTTPTransport_HonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := transport.Do(ctx, url.Values{})
	assert.Error(t, err)
}
