// Package pipeline orchestrates the discovery batch: parse contacts, resolve
// domains, generate candidates, verify, and emit results in input order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/leadline-labs/mailscout-cli/internal/config"
	"github.com/leadline-labs/mailscout-cli/internal/domain"
	"github.com/leadline-labs/mailscout-cli/internal/model"
)

// Resolver maps a company name to a mail domain.
type Resolver interface {
	Resolve(ctx context.Context, company string) (model.DomainResult, error)
}

// Generator produces ranked candidate addresses for a contact at a domain.
type Generator interface {
	Generate(first, last, domain string) []model.Candidate
}

// Verifier scores one candidate. It never fails; network trouble comes back
// as an UNKNOWN verdict.
type Verifier interface {
	Verify(ctx context.Context, cand model.Candidate) model.Verdict
}

// Runner executes a batch of contacts with bounded concurrency and per-domain
// rate limiting.
type Runner struct {
	cfg      config.PipelineConfig
	resolver Resolver
	gen      Generator
	verifier Verifier

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// NewRunner assembles a Runner from its stages.
func NewRunner(cfg config.PipelineConfig, resolver Resolver, gen Generator, verifier Verifier) *Runner {
	return &Runner{
		cfg:      cfg,
		resolver: resolver,
		gen:      gen,
		verifier: verifier,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Outcome is the result of one batch run.
type Outcome struct {
	Results []model.ContactResult
	Stats   model.RunStats
}

// CapabilityError reports that a capability the whole batch depends on (the
// DNS resolver, for one) is down outright. Per-contact isolation does not
// apply here: grinding through the rest of the batch would only produce an
// all-UNKNOWN report that looks like a successful run.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("pipeline: %s capability unavailable: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// lookupFailureThreshold is the number of consecutive lookup-unavailable
// resolutions after which the batch aborts. Any successful resolution
// resets the streak, so a flaky resolver does not trip it.
const lookupFailureThreshold = 5

// Run processes every contact and returns results indexed exactly like the
// input. A contact that fails in any way still yields a result; only context
// cancellation or a capability-wide outage aborts the batch.
func (r *Runner) Run(ctx context.Context, contacts []model.Contact) (*Outcome, error) {
	log := zap.L().With(zap.Int("contacts", len(contacts)))
	log.Info("pipeline: starting batch")
	start := time.Now()

	concurrency := r.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	// A batch smaller than the threshold should still abort once every
	// contact has hit the outage.
	abortAfter := int32(lookupFailureThreshold)
	if n := int32(len(contacts)); n > 0 && n < abortAfter {
		abortAfter = n
	}
	var lookupFailures atomic.Int32

	results := make([]model.ContactResult, len(contacts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, c := range contacts {
		g.Go(func() error {
			res, err := r.processContact(gCtx, c, &lookupFailures, abortAfter)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		var ce *CapabilityError
		if errors.As(err, &ce) {
			log.Error("pipeline: batch aborted, capability down",
				zap.String("capability", ce.Capability),
				zap.Error(ce.Err),
			)
		}
		return nil, eris.Wrap(err, "pipeline: run aborted")
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: run aborted")
	}

	out := &Outcome{Results: results}
	for _, res := range results {
		out.Stats.Add(res)
	}

	log.Info("pipeline: batch complete",
		zap.Int("found", out.Stats.Found),
		zap.Int("verified", out.Stats.Verified),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// processContact runs the resolve-generate-verify chain for one contact.
// Per-contact failures are recorded on the result, never propagated, so one
// bad row cannot sink the batch. The returned error is non-nil only when the
// lookup-unavailable streak crosses abortAfter, which escalates to a
// batch-wide CapabilityError.
func (r *Runner) processContact(ctx context.Context, c model.Contact, lookupFailures *atomic.Int32, abortAfter int32) (model.ContactResult, error) {
	if timeout := r.cfg.ContactTimeoutSecs; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	log := zap.L().With(
		zap.Int("row", c.RowIndex),
		zap.String("company", c.Company),
	)

	result := model.ContactResult{Contact: c}

	// The batch is already aborting; don't start new work.
	if err := ctx.Err(); err != nil {
		result.Verdict = unknownVerdict("run aborted: " + err.Error())
		return result, nil
	}

	if !c.HasNames() {
		result.Verdict = unknownVerdict("missing contact name")
		return result, nil
	}
	if c.Company == "" {
		result.Verdict = unknownVerdict("missing company name")
		return result, nil
	}

	dr, err := r.resolver.Resolve(ctx, c.Company)
	if err != nil {
		log.Debug("pipeline: domain resolution failed", zap.Error(err))
		result.Verdict = unknownVerdict("domain resolution failed: " + err.Error())
		if domain.IsLookupUnavailable(err) && lookupFailures.Add(1) >= abortAfter {
			return result, &CapabilityError{Capability: "dns", Err: err}
		}
		return result, nil
	}
	lookupFailures.Store(0)
	result.Domain = dr.Domain

	candidates := r.gen.Generate(c.FirstName, c.LastName, dr.Domain)
	if len(candidates) == 0 {
		result.Verdict = unknownVerdict("no candidates generated")
		return result, nil
	}

	limiter := r.limiterFor(dr.Domain)
	invalidCount := 0
	for _, cand := range candidates {
		if err := limiter.Wait(ctx); err != nil {
			result.Verdict = unknownVerdict("rate limit wait: " + err.Error())
			return result, nil
		}

		verdict := r.verifier.Verify(ctx, cand)
		result.Attempts = append(result.Attempts, model.Attempt{Candidate: cand, Verdict: verdict})

		if verdict.Status.Accepted() {
			result.ChosenEmail = cand.Address()
			result.Verdict = verdict
			log.Debug("pipeline: candidate accepted",
				zap.String("email", result.ChosenEmail),
				zap.String("status", string(verdict.Status)),
			)
			return result, nil
		}
		if verdict.Status == model.StatusInvalid {
			invalidCount++
		}
	}

	// No candidate accepted. If every probe came back with a hard rejection
	// the mailbox pattern genuinely doesn't exist there; otherwise we just
	// don't know.
	if invalidCount == len(result.Attempts) {
		result.Verdict = result.Attempts[len(result.Attempts)-1].Verdict
		return result, nil
	}

	// With probing disabled the verifier stops at MX evidence. Surface the
	// top-ranked candidate as a best guess rather than nothing.
	for _, att := range result.Attempts {
		if att.Verdict.Status == model.StatusUnknown && att.Verdict.Confidence > 0 {
			result.ChosenEmail = att.Candidate.Address()
			result.Verdict = att.Verdict
			return result, nil
		}
	}

	result.Verdict = unknownVerdict("no candidate accepted")
	return result, nil
}

func (r *Runner) limiterFor(domain string) *rate.Limiter {
	r.limitersMu.Lock()
	defer r.limitersMu.Unlock()

	if l, ok := r.limiters[domain]; ok {
		return l
	}

	perDomain := r.cfg.PerDomainRate
	if perDomain <= 0 {
		perDomain = 0.5
	}
	burst := r.cfg.PerDomainBurst
	if burst <= 0 {
		burst = 1
	}

	l := rate.NewLimiter(rate.Limit(perDomain), burst)
	r.limiters[domain] = l
	return l
}

func unknownVerdict(msg string) model.Verdict {
	return model.Verdict{
		Status:    model.StatusUnknown,
		Message:   msg,
		CheckedAt: time.Now().UTC(),
	}
}
