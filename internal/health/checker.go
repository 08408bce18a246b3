// Package health aggregates liveness checks for the daemon's collaborators:
// the optional Redis rate-state store and the proxy service endpoint.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Checkable represents a component that can report its health status.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// Checker aggregates health checks for multiple components.
type Checker struct {
	log    *slog.Logger
	checks map[string]Checkable
}

// NewChecker instantiates a Checker with the provided logger.
func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}

	return &Checker{
		log:    log,
		checks: make(map[string]Checkable),
	}
}

// AddCheck registers a checkable component by name.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	c.checks[name] = check
}

// Check runs all registered health checks and returns per-component status
// strings, "ok" for healthy components.
func (c *Checker) Check(ctx context.Context) map[string]string {
	results := make(map[string]string, len(c.checks))

	for name, check := range c.checks {
		if err := check.HealthCheck(ctx); err != nil {
			c.log.Warn("health check failed", slog.String("component", name), slog.Any("error", err))
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	return results
}

// Handler serves the aggregated checks as JSON, 503 when any component is
// unhealthy.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		results := c.Check(ctx)

		status := http.StatusOK
		for _, v := range results {
			if v != "ok" {
				status = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	})
}

// RedisCheck reports whether the shared rate-state store is reachable.
type RedisCheck struct {
	Client *redis.Client
}

// HealthCheck pings the Redis server.
func (c RedisCheck) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// EndpointCheck reports whether the proxy service endpoint resolves and
// accepts connections. It deliberately avoids the API path so that health
// probes never consume quota.
type EndpointCheck struct {
	URL    string
	Client *http.Client
}

// HealthCheck issues a HEAD request against the service host.
func (c EndpointCheck) HealthCheck(ctx context.Context) error {
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.URL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	return nil
}
