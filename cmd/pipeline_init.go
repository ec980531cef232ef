package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadline-labs/mailscout-cli/internal/domain"
	"github.com/leadline-labs/mailscout-cli/internal/pattern"
	"github.com/leadline-labs/mailscout-cli/internal/pipeline"
	"github.com/leadline-labs/mailscout-cli/internal/resilience"
	"github.com/leadline-labs/mailscout-cli/internal/store"
	"github.com/leadline-labs/mailscout-cli/internal/verify"
	"github.com/leadline-labs/mailscout-cli/pkg/dnsx"
	"github.com/leadline-labs/mailscout-cli/pkg/search"
	"github.com/leadline-labs/mailscout-cli/pkg/smtpx"
)

// pipelineEnv holds the initialized store and pipeline stages shared by the
// find/run/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Resolver pipeline.Resolver
	Runner   *pipeline.Runner
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "mailscout.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initResolver builds the domain resolver chain: known table, DNS probing,
// optional web-search fallback, persistent cache on top.
func initResolver(st store.Store) (pipeline.Resolver, error) {
	known, err := domain.KnownDomains(cfg.Resolver.KnownDomainsFile)
	if err != nil {
		return nil, eris.Wrap(err, "load known domains")
	}

	dnsClient := dnsx.NewClient(
		dnsx.WithTimeout(time.Duration(cfg.Resolver.DNSTimeoutSecs) * time.Second),
	)

	var searchClient search.Client
	if cfg.Resolver.SearchEnabled {
		searchClient = search.NewClient(
			search.WithBaseURL(cfg.Search.BaseURL),
			search.WithUserAgent(cfg.Search.UserAgent),
			search.WithTimeout(time.Duration(cfg.Search.TimeoutSecs)*time.Second),
		)
	} else {
		zap.L().Debug("search fallback disabled")
	}

	resolver := domain.NewResolver(dnsClient, searchClient, known, domain.NewCache())
	return domain.NewStoreCachedResolver(resolver, st, domain.DefaultCacheTTL), nil
}

// initVerifier builds the verifier. With smtpEnabled false the verifier
// stops at MX evidence.
func initVerifier(smtpEnabled bool) *verify.Verifier {
	policy := verify.Policy{
		SMTPEnabled:  smtpEnabled && cfg.Verify.SMTPEnabled,
		MailFrom:     cfg.Verify.MailFrom,
		ConfValid:    cfg.Verify.ConfidenceValid,
		ConfCatchAll: cfg.Verify.ConfidenceCatchAll,
		ConfInvalid:  cfg.Verify.ConfidenceInvalid,
		ConfMXOnly:   cfg.Verify.ConfidenceMXOnly,
		ConfNoMX:     cfg.Verify.ConfidenceNoMX,
	}

	dnsClient := dnsx.NewClient(
		dnsx.WithTimeout(time.Duration(cfg.Resolver.DNSTimeoutSecs) * time.Second),
	)
	transport := smtpx.NewTransport(
		smtpx.WithTimeout(time.Duration(cfg.Verify.TimeoutSecs)*time.Second),
		smtpx.WithHeloDomain(cfg.Verify.HeloDomain),
	)

	retryCfg := resilience.FromRetryConfig(cfg.Verify.RetryAttempts, cfg.Verify.RetryBackoffMs, 0, 0, 0)
	retryCfg.OnRetry = resilience.RetryLogger("smtp", "probe")

	breakers := resilience.NewBreakerGroup(
		resilience.FromCircuitConfig(cfg.Verify.BreakerThreshold, cfg.Verify.BreakerResetSecs),
	)

	return verify.NewVerifier(dnsClient, transport, policy,
		verify.WithRetryConfig(retryCfg),
		verify.WithBreakerGroup(breakers),
	)
}

// initPipeline sets up the store and all pipeline stages. Callers should
// defer env.Close().
func initPipeline(ctx context.Context, smtpEnabled bool) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	resolver, err := initResolver(st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	gen := pattern.New(
		pattern.WithMaxCandidates(cfg.Patterns.MaxCandidates),
		pattern.WithExtended(cfg.Patterns.Extended),
	)

	runner := pipeline.NewRunner(cfg.Pipeline, resolver, gen, initVerifier(smtpEnabled))

	return &pipelineEnv{
		Store:    st,
		Resolver: resolver,
		Runner:   runner,
	}, nil
}
