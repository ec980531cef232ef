// Package verify resolves candidate addresses to confidence-scored verdicts
// via MX lookups and optional SMTP recipient probes.
package verify

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadline-labs/mailscout-cli/internal/model"
	"github.com/leadline-labs/mailscout-cli/internal/resilience"
	"github.com/leadline-labs/mailscout-cli/pkg/dnsx"
	"github.com/leadline-labs/mailscout-cli/pkg/smtpx"
)

// Policy holds the tunable confidence values and probe identity. The
// confidences are policy choices, not protocol facts, so they live in
// configuration rather than constants.
type Policy struct {
	SMTPEnabled  bool
	MailFrom     string
	ConfValid    float64
	ConfCatchAll float64
	ConfInvalid  float64
	ConfMXOnly   float64
	ConfNoMX     float64
}

// DefaultPolicy returns the standard confidence assignments.
func DefaultPolicy() Policy {
	return Policy{
		SMTPEnabled:  true,
		MailFrom:     "verify@verify.local",
		ConfValid:    0.9,
		ConfCatchAll: 0.5,
		ConfInvalid:  0.85,
		ConfMXOnly:   0.3,
		ConfNoMX:     1.0,
	}
}

// Verifier checks candidates against the real mail infrastructure. All
// expected network failures collapse into an UNKNOWN verdict; Verify never
// returns an error.
type Verifier struct {
	dns       dnsx.Client
	transport smtpx.Transport
	policy    Policy

	retryCfg resilience.RetryConfig
	breakers *resilience.BreakerGroup

	// mxCache avoids re-resolving MX for every candidate at the same domain.
	mxCache sync.Map // domain -> []dnsx.MX

	catchAll *catchAllCache

	// randomLocal produces the deliberately-invalid local-part used for
	// catch-all detection. Injectable for tests.
	randomLocal func() string

	now func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithRetryConfig overrides the transient-failure retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(v *Verifier) {
		v.retryCfg = cfg
	}
}

// WithBreakerGroup overrides the per-host circuit breakers.
func WithBreakerGroup(g *resilience.BreakerGroup) Option {
	return func(v *Verifier) {
		v.breakers = g
	}
}

// WithRandomLocal overrides the catch-all probe local-part generator.
func WithRandomLocal(fn func() string) Option {
	return func(v *Verifier) {
		v.randomLocal = fn
	}
}

// NewVerifier creates a Verifier. A nil transport disables SMTP probing, in
// which case MX evidence alone decides the verdict.
func NewVerifier(dns dnsx.Client, transport smtpx.Transport, policy Policy, opts ...Option) *Verifier {
	v := &Verifier{
		dns:       dns,
		transport: transport,
		policy:    policy,
		retryCfg:  resilience.DefaultRetryConfig(),
		breakers:  resilience.NewBreakerGroup(resilience.DefaultCircuitBreakerConfig()),
		catchAll:  newCatchAllCache(),
		randomLocal: func() string {
			return "probe-" + strings.ReplaceAll(uuid.NewString(), "-", "")
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	if v.retryCfg.ShouldRetry == nil {
		v.retryCfg.ShouldRetry = probeRetryable
	}
	return v
}

// probeRetryable classifies probe failures for retry: transient transport
// errors, plus dialogs that died on a 4xx reply during HELO or MAIL FROM
// (greylisting happens there too, not just at RCPT). Permanent 5xx
// rejections come back as Results rather than errors and are never retried.
func probeRetryable(err error) bool {
	return resilience.IsTransient(err) || resilience.IsTransientSMTPCode(smtpx.DialogCode(err))
}

// addressSyntax is a deliberately loose RFC 5322 subset. Anything the
// generator emits passes; the check guards addresses supplied directly.
var addressSyntax = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Verify runs the per-candidate state machine: syntax gate, MX gate, then
// optional SMTP probe, then catch-all disambiguation.
func (v *Verifier) Verify(ctx context.Context, cand model.Candidate) model.Verdict {
	if !addressSyntax.MatchString(cand.Address()) {
		return v.verdict(model.StatusInvalid, 1.0, "malformed address")
	}

	mxs, err := v.lookupMX(ctx, cand.Domain)
	if err != nil {
		// Resolver failure says nothing about the mailbox.
		return v.verdict(model.StatusUnknown, 0, "mx lookup failed: "+err.Error())
	}

	if len(mxs) == 0 {
		// No mail-exchange records means the domain cannot receive mail
		// at all. This is the one case DNS alone settles.
		return v.verdict(model.StatusInvalid, v.policy.ConfNoMX, "no mx records")
	}

	if !v.policy.SMTPEnabled || v.transport == nil {
		return v.verdict(model.StatusUnknown, v.policy.ConfMXOnly, "mx present, smtp probing disabled")
	}

	host := mxs[0].Host
	res, err := v.probe(ctx, host, cand.Address())
	if err != nil {
		zap.L().Debug("smtp probe failed",
			zap.String("host", host),
			zap.String("candidate", cand.Address()),
			zap.Error(err),
		)
		return v.verdict(model.StatusUnknown, 0, "probe failed: "+err.Error())
	}

	switch {
	case res.Accepted():
		if v.isCatchAll(ctx, cand.Domain, host) {
			return v.verdict(model.StatusCatchAll, v.policy.ConfCatchAll, "domain accepts any recipient")
		}
		return v.verdict(model.StatusValid, v.policy.ConfValid, res.Message)
	case res.Rejected():
		return v.verdict(model.StatusInvalid, v.policy.ConfInvalid, res.Message)
	default:
		// 4xx greylisting and anything nonstandard: temporary failure is
		// not evidence of nonexistence.
		return v.verdict(model.StatusUnknown, 0, res.Message)
	}
}

func (v *Verifier) verdict(status model.VerdictStatus, confidence float64, msg string) model.Verdict {
	return model.Verdict{
		Status:     status,
		Confidence: confidence,
		Message:    msg,
		CheckedAt:  v.now().UTC(),
	}
}

func (v *Verifier) lookupMX(ctx context.Context, domain string) ([]dnsx.MX, error) {
	if cached, ok := v.mxCache.Load(domain); ok {
		return cached.([]dnsx.MX), nil
	}
	mxs, err := v.dns.LookupMX(ctx, domain)
	if err != nil {
		return nil, err
	}
	v.mxCache.Store(domain, mxs)
	return mxs, nil
}

// probe issues one recipient check with retry on transient transport errors,
// routed through the host's circuit breaker so a dead MX stops costing a
// timeout per candidate.
func (v *Verifier) probe(ctx context.Context, host, to string) (smtpx.Result, error) {
	return resilience.DoVal(ctx, v.retryCfg, func(ctx context.Context) (smtpx.Result, error) {
		return resilience.ExecuteVal(ctx, v.breakers.For(host), func(ctx context.Context) (smtpx.Result, error) {
			return v.transport.Probe(ctx, host, v.policy.MailFrom, to)
		})
	})
}

// isCatchAll reports whether the domain accepts a random, certainly
// nonexistent local-part. The probe runs at most once per domain per run.
func (v *Verifier) isCatchAll(ctx context.Context, domain, host string) bool {
	return v.catchAll.check(domain, func() bool {
		res, err := v.probe(ctx, host, v.randomLocal()+"@"+domain)
		if err != nil {
			// Can't tell; assume the earlier acceptance was genuine.
			return false
		}
		return res.Accepted()
	})
}

// catchAllCache guarantees the catch-all probe runs at most once per domain
// even under concurrent verification of candidates at the same domain.
type catchAllCache struct {
	mu      sync.Mutex
	entries map[string]*catchAllEntry
}

type catchAllEntry struct {
	once       sync.Once
	isCatchAll bool
}

func newCatchAllCache() *catchAllCache {
	return &catchAllCache{entries: make(map[string]*catchAllEntry)}
}

func (c *catchAllCache) check(domain string, probe func() bool) bool {
	c.mu.Lock()
	e, ok := c.entries[domain]
	if !ok {
		e = &catchAllEntry{}
		c.entries[domain] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.isCatchAll = probe()
	})
	return e.isCatchAll
}
