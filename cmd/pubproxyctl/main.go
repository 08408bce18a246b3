// pubproxyctl fetches proxies from pubproxy.com while staying inside the
// service's usage limits. One-shot by default; -watch keeps it running and
// exposes metrics and health endpoints.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pubproxy/pubproxy-go/apierrors"
	"github.com/pubproxy/pubproxy-go/fetcher"
	"github.com/pubproxy/pubproxy-go/internal/health"
	"github.com/pubproxy/pubproxy-go/opts"
	"github.com/pubproxy/pubproxy-go/pkg/config"
	"github.com/pubproxy/pubproxy-go/pkg/graceful"
	"github.com/pubproxy/pubproxy-go/pkg/logger"
	pkgredis "github.com/pubproxy/pubproxy-go/pkg/redis"
	"github.com/pubproxy/pubproxy-go/proxy"
	"github.com/pubproxy/pubproxy-go/ratelimit"
)

type cliFlags struct {
	count       int
	protocol    string
	level       string
	countries   string
	notCountry  string
	lastChecked time.Duration
	speed       time.Duration
	port        int
	jsonOut     bool
	watch       time.Duration

	https     bool
	post      bool
	cookies   bool
	referer   bool
	userAgent bool
	google    bool
}

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	var f cliFlags
	flag.IntVar(&f.count, "n", 5, "number of proxies to fetch")
	flag.StringVar(&f.protocol, "protocol", "", "filter by protocol: http, socks4, socks5")
	flag.StringVar(&f.level, "level", "", "filter by anonymity level: anonymous, elite")
	flag.StringVar(&f.countries, "country", "", "comma-separated allow-list of country codes")
	flag.StringVar(&f.notCountry, "not-country", "", "comma-separated deny-list of country codes")
	flag.DurationVar(&f.lastChecked, "last-checked", 0, "keep proxies verified within this duration (1m-1000m)")
	flag.DurationVar(&f.speed, "speed", 0, "keep proxies that connected within this duration (1s-60s)")
	flag.IntVar(&f.port, "port", 0, "keep proxies listening on this port")
	flag.BoolVar(&f.jsonOut, "json", false, "print full records as JSON instead of host:port lines")
	flag.DurationVar(&f.watch, "watch", 0, "keep fetching at this interval until interrupted")
	flag.BoolVar(&f.https, "https", false, "require HTTPS support")
	flag.BoolVar(&f.post, "post", false, "require POST support")
	flag.BoolVar(&f.cookies, "cookies", false, "require cookie support")
	flag.BoolVar(&f.referer, "referer", false, "require referer support")
	flag.BoolVar(&f.userAgent, "user-agent", false, "require user-agent forwarding")
	flag.BoolVar(&f.google, "google", false, "require proxies that reached google")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return err
	}

	log, flush, err := logger.Setup(logger.Options{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		File:      cfg.LogFile,
		SentryDSN: cfg.SentryDSN,
		Env:       cfg.AppEnv,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		return err
	}
	defer flush()

	config.Watch(v, log, func(updated *config.Config) {
		// Collaborators are bound at startup; surface the change instead
		// of half-applying it.
		log.Warn("configuration changed on disk; restart to apply",
			slog.String("file", v.ConfigFileUsed()))
	})

	built, err := buildOpts(&f, cfg.APIKey)
	if err != nil {
		log.Error("invalid filter options", slog.Any("error", err))
		return err
	}

	var kv ratelimit.KV
	var redisClient *pkgredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = pkgredis.New(ctx, pkgredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("shared rate-state store unavailable", slog.Any("error", err))
			return err
		}
		defer func() {
			_ = redisClient.Close()
		}()
		kv = pkgredis.NewMetricsClient(redisClient)
		log.Info("sharing rate state through redis", slog.String("addr", cfg.Redis.Addr))
	}

	session := fetcher.NewSession(fetcher.Config{
		Transport: fetcher.NewHTTPTransport(cfg.BaseURL, cfg.RequestTimeout),
		KV:        kv,
		Logger:    log,
	})
	fetch := session.SpawnFetcher(built)
	errHandler := apierrors.NewHandler(log, cfg.SentryDSN != "")

	if f.watch <= 0 {
		records, err := fetch.Fetch(ctx, f.count)
		if err != nil {
			errHandler.Handle(ctx, err)
			return err
		}
		return printRecords(records, f.jsonOut)
	}

	if cfg.MetricsAddr != "" {
		go serveAdmin(ctx, cfg, log, redisClient)
	}

	log.Info("watch mode started",
		slog.Duration("interval", f.watch),
		slog.Int("count", f.count),
	)

	ticker := time.NewTicker(f.watch)
	defer ticker.Stop()

	for {
		records, err := fetch.Fetch(ctx, f.count)
		if err != nil {
			errHandler.Handle(ctx, err)
			if apierrors.KindOf(err) == apierrors.KindQuotaExceeded {
				log.Warn("daily quota exhausted; requests will keep failing until the next day")
			}
		} else if err := printRecords(records, f.jsonOut); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

func buildOpts(f *cliFlags, apiKey string) (*opts.Opts, error) {
	b := opts.NewBuilder()

	if apiKey != "" {
		b.APIKey(apiKey)
	}
	if f.protocol != "" {
		b.Protocol(opts.Protocol(f.protocol))
	}
	if f.level != "" {
		b.Level(opts.Level(f.level))
	}
	if f.countries != "" {
		b.Countries(splitCSV(f.countries)...)
	}
	if f.notCountry != "" {
		b.NotCountries(splitCSV(f.notCountry)...)
	}
	if f.lastChecked > 0 {
		b.LastChecked(f.lastChecked)
	}
	if f.speed > 0 {
		b.TimeToConnect(f.speed)
	}
	if f.port > 0 {
		b.Port(f.port)
	}

	// Capability flags only constrain when explicitly passed; their absence
	// means "any".
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "https":
			b.HTTPS(f.https)
		case "post":
			b.Post(f.post)
		case "cookies":
			b.Cookies(f.cookies)
		case "referer":
			b.Referer(f.referer)
		case "user-agent":
			b.ForwardsUserAgent(f.userAgent)
		case "google":
			b.ConnectsToGoogle(f.google)
		}
	})

	return b.Build()
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printRecords(records []proxy.Proxy, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	for i := range records {
		fmt.Println(records[i].Address())
	}
	return nil
}

// endpointProbeURL strips the API path from base so health probes only HEAD
// the service host and never consume request quota.
func endpointProbeURL(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	return u.Scheme + "://" + u.Host
}

func serveAdmin(ctx context.Context, cfg *config.Config, log *slog.Logger, redisClient *pkgredis.Client) {
	checker := health.NewChecker(log)
	checker.AddCheck("endpoint", health.EndpointCheck{URL: endpointProbeURL(cfg.BaseURL)})
	if redisClient != nil {
		checker.AddCheck("redis", health.RedisCheck{Client: redisClient.Client})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", checker.Handler())

	srv := graceful.NewServer(log, &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}, 10*time.Second)

	if err := srv.ListenAndServe(ctx); err != nil {
		log.Error("admin server exited", slog.Any("error", err))
	}
}
