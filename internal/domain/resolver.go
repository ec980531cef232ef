// Package domain resolves company names to the registered mail domain that
// candidate addresses are generated against.
package domain

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leadline-labs/mailscout-cli/internal/model"
	"github.com/leadline-labs/mailscout-cli/pkg/dnsx"
	"github.com/leadline-labs/mailscout-cli/pkg/search"
)

// ResolutionErrorKind classifies why a company could not be resolved.
type ResolutionErrorKind string

const (
	// NoValidDomain means every candidate domain failed DNS acceptance.
	NoValidDomain ResolutionErrorKind = "no_valid_domain"
	// LookupUnavailable means the DNS capability itself failed, so nothing
	// can be said about the company either way.
	LookupUnavailable ResolutionErrorKind = "lookup_unavailable"
)

// ResolutionError reports a failed resolution with its cause.
type ResolutionError struct {
	Kind    ResolutionErrorKind
	Company string
	Err     error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %q: %s: %v", e.Company, e.Kind, e.Err)
	}
	return fmt.Sprintf("resolve %q: %s", e.Company, e.Kind)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsNoValidDomain reports whether err is a ResolutionError of kind NoValidDomain.
func IsNoValidDomain(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Kind == NoValidDomain
}

// IsLookupUnavailable reports whether err is a ResolutionError of kind
// LookupUnavailable, meaning the DNS capability itself failed rather than
// the company being unresolvable.
func IsLookupUnavailable(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Kind == LookupUnavailable
}

// Resolver turns company names into MX-accepted mail domains.
type Resolver struct {
	dns           dnsx.Client
	search        search.Client
	known         map[string]string
	cache         *Cache
	searchEnabled bool
}

// NewResolver creates a Resolver. The search client may be nil when the
// fallback is disabled; the cache is scoped to one pipeline run and shared
// across workers.
func NewResolver(dns dnsx.Client, searchClient search.Client, known map[string]string, cache *Cache) *Resolver {
	return &Resolver{
		dns:           dns,
		search:        searchClient,
		known:         known,
		cache:         cache,
		searchEnabled: searchClient != nil,
	}
}

// Resolve maps a company name to its mail domain: known table first, then a
// direct name guess, then web search, each gated by DNS acceptance.
func (r *Resolver) Resolve(ctx context.Context, company string) (model.DomainResult, error) {
	norm := NormalizeCompany(company)
	if norm == "" {
		return model.DomainResult{}, &ResolutionError{Kind: NoValidDomain, Company: company}
	}

	if result, err, ok := r.cache.Get(norm); ok {
		return result, err
	}

	result, err := r.resolve(ctx, company, norm)
	// Lookup-unavailable outcomes are not cached: the resolver may come
	// back mid-run and later contacts should get a fresh attempt.
	if IsLookupUnavailable(err) {
		return result, err
	}
	return r.cache.Put(norm, result, err)
}

func (r *Resolver) resolve(ctx context.Context, company, norm string) (model.DomainResult, error) {
	log := zap.L().With(zap.String("company", norm))

	// Step 1: known-company table, normalized equality only.
	if known, ok := r.known[norm]; ok {
		confirmed, err := r.accept(ctx, known)
		if err != nil {
			return model.DomainResult{}, &ResolutionError{Kind: LookupUnavailable, Company: company, Err: err}
		}
		if confirmed != acceptNone {
			log.Debug("resolved from known table", zap.String("domain", known))
			return model.DomainResult{
				Domain:      known,
				Source:      model.DomainSourceKnown,
				MXConfirmed: confirmed == acceptMX,
			}, nil
		}
	}

	// Step 2a: direct guess from the name.
	if slug := slugify(norm); slug != "" {
		guess := slug + ".com"
		confirmed, err := r.accept(ctx, guess)
		if err != nil {
			return model.DomainResult{}, &ResolutionError{Kind: LookupUnavailable, Company: company, Err: err}
		}
		if confirmed != acceptNone {
			log.Debug("resolved from name guess", zap.String("domain", guess))
			return model.DomainResult{
				Domain:      guess,
				Source:      model.DomainSourceSearch,
				MXConfirmed: confirmed == acceptMX,
			}, nil
		}
	}

	// Step 2b: web-search fallback.
	if r.searchEnabled {
		found, err := r.search.SearchDomain(ctx, company)
		if err != nil {
			// Search is best-effort; a dead search backend is not a
			// resolution verdict.
			log.Warn("domain search failed", zap.Error(err))
		} else if found != "" {
			confirmed, err := r.accept(ctx, found)
			if err != nil {
				return model.DomainResult{}, &ResolutionError{Kind: LookupUnavailable, Company: company, Err: err}
			}
			if confirmed != acceptNone {
				log.Debug("resolved from search", zap.String("domain", found))
				return model.DomainResult{
					Domain:      found,
					Source:      model.DomainSourceSearch,
					MXConfirmed: confirmed == acceptMX,
				}, nil
			}
		}
	}

	return model.DomainResult{}, &ResolutionError{Kind: NoValidDomain, Company: company}
}

type acceptance int

const (
	acceptNone acceptance = iota
	acceptMX
	acceptAddr
)

// accept applies the DNS gate: a domain is usable if it has MX records, or
// failing that at least an A/AAAA record (implicit MX per mail routing
// fallback rules).
func (r *Resolver) accept(ctx context.Context, domainName string) (acceptance, error) {
	mxs, err := r.dns.LookupMX(ctx, domainName)
	if err != nil {
		return acceptNone, err
	}
	if len(mxs) > 0 {
		return acceptMX, nil
	}

	hasAddr, err := r.dns.HasAddr(ctx, domainName)
	if err != nil {
		return acceptNone, err
	}
	if hasAddr {
		return acceptAddr, nil
	}
	return acceptNone, nil
}
