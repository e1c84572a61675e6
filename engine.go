// Package adblockcore is the public facade over the filter-list matching
// engine of spec.md: Engine wraps a parser.Parser, a match.Matcher, the
// bad-fingerprint diagnostics registry and optional Prometheus counters
// behind a single sync.RWMutex, per spec.md §5 — parse/deserialize/addTag/
// removeTag/clear take the write lock, every read-only query takes the
// read lock and may run concurrently with other readers.
package adblockcore

import (
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/log"
	"github.com/joomcode/errorx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wizos/adblockcore/internal/diagnostics"
	"github.com/wizos/adblockcore/internal/match"
	"github.com/wizos/adblockcore/internal/metrics"
	"github.com/wizos/adblockcore/internal/parser"
	"github.com/wizos/adblockcore/internal/rule"
	"github.com/wizos/adblockcore/internal/serialize"
)

// Engine is the matching engine's public entry point.
type Engine struct {
	mu sync.RWMutex

	cfg     EngineConfig
	pcfg    parser.Config
	parser  *parser.Parser
	matcher *match.Matcher
	diag    *diagnostics.Registry
	metrics *metrics.Collectors
}

// NewEngine builds an empty Engine from cfg. A zero EngineConfig is
// equivalent to DefaultEngineConfig.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg == (EngineConfig{}) {
		cfg = DefaultEngineConfig()
	}
	pcfg := cfg.parserConfig()

	e := &Engine{
		cfg:     cfg,
		pcfg:    pcfg,
		parser:  parser.New(pcfg),
		diag:    diagnostics.NewRegistry(),
		metrics: metrics.NewCollectors(),
	}
	if cfg.EnableBadFingerprintDetection {
		e.diag.Enable()
	}
	e.matcher = match.New(e.parser, e.diag, e.metrics)
	return e
}

// Parse consumes newline-delimited filter-list text, merging it onto any
// previously parsed rules (spec.md §4.1, §5 "parse" — an exclusive,
// mutating operation).
func (e *Engine) Parse(text string, preserveRuleText bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parser.Parse(text, preserveRuleText)
}

// Matches implements spec.md §6's matches(url): true iff a block rule
// matches and no exception rule also matches. contextOption carries the
// request's resource-type/party bits (see internal/rule's Opt* constants);
// contextDomain is the top-level page's domain, used for domain-list and
// third-party evaluation.
func (e *Engine) Matches(url string, contextOption rule.FilterOption, contextDomain string) (blocked bool, matched, matchedException *rule.Filter) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher.Matches(url, contextOption, contextDomain)
}

// FindMatchingFilters returns every filter (block- and exception-side)
// whose predicate is satisfied by the request, ignoring precedence — the
// diagnostic operation of spec.md §6.
func (e *Engine) FindMatchingFilters(url string, contextOption rule.FilterOption, contextDomain string) []*rule.Filter {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher.FindMatchingFilters(url, contextOption, contextDomain)
}

// GetElementHidingSelectors returns the comma-joined selector list for
// url's host, per spec.md §4.3/§6.
func (e *Engine) GetElementHidingSelectors(url string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher.GetElementHidingSelectors(url)
}

// GetElementHidingExceptionSelectors is the exception-side twin.
func (e *Engine) GetElementHidingExceptionSelectors(url string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher.GetElementHidingExceptionSelectors(url)
}

// GetGenericElementHidingSelectors returns the selector list for rules
// with no domain restriction at all (plain "##selector"), independent of
// any request URL.
func (e *Engine) GetGenericElementHidingSelectors() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher.GetGenericElementHidingSelectors()
}

// GetGenericElementHidingExceptionSelectors is the exception-side twin.
func (e *Engine) GetGenericElementHidingExceptionSelectors() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher.GetGenericElementHidingExceptionSelectors()
}

// AddTag enables tag, making any parsed rule carrying tag=<tag> eligible to
// match (spec.md §4, "Tag registry"). A tag name containing a comma cannot
// round-trip through the serialized domain-list field's "~#"+tag+","
// encoding (internal/serialize), so it is rejected with ErrInvalidSyntax
// instead of silently corrupting a later Serialize call.
func (e *Engine) AddTag(tag string) error {
	if strings.Contains(tag, ",") {
		return ErrInvalidSyntax
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parser.Tags.Add(tag)
	return nil
}

// RemoveTag disables tag.
func (e *Engine) RemoveTag(tag string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parser.Tags.Remove(tag)
}

// TagExists reports whether tag is currently enabled.
func (e *Engine) TagExists(tag string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parser.Tags.Has(tag)
}

// RequireTag returns ErrUnknownTag if tag is not currently enabled, for
// callers (e.g. a config-reload path) that must fail loudly rather than
// silently matching nothing against a mistyped tag name.
func (e *Engine) RequireTag(tag string) error {
	if !e.TagExists(tag) {
		return ErrUnknownTag
	}
	return nil
}

// UnsupportedOptions returns the unrecognized filter-option tokens Parse has
// encountered so far (spec.md §9's per-instance diagnostic field).
func (e *Engine) UnsupportedOptions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.parser.UnsupportedOptions))
	for opt := range e.parser.UnsupportedOptions {
		out = append(out, opt)
	}
	return out
}

// CheckUnsupportedOptions returns ErrUnsupportedOption if Parse has ever
// dropped a rule for an unrecognized option token — for callers that want
// to treat a filter list containing unknown options as a hard failure
// rather than spec.md §7's default "skip the one rule" behavior.
func (e *Engine) CheckUnsupportedOptions() error {
	if len(e.UnsupportedOptions()) > 0 {
		return ErrUnsupportedOption
	}
	return nil
}

// CheckDiscardedLines returns ErrLineTooLong if Parse has ever discarded a
// line for exceeding the configured max line length.
func (e *Engine) CheckDiscardedLines() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.parser.DiscardedOversizedLines > 0 {
		return ErrLineTooLong
	}
	return nil
}

// EnableBadFingerprintDetection turns on the bad-fingerprint diagnostics
// registry (spec.md §4.5, §6); it is off by default unless EngineConfig
// requested it at construction.
func (e *Engine) EnableBadFingerprintDetection() {
	e.diag.Enable()
}

// BadFingerprints returns the fingerprints the diagnostics registry has
// recorded as Bloom false positives so far.
func (e *Engine) BadFingerprints() []string {
	return e.diag.Fingerprints()
}

// RegisterMetrics registers the engine's Prometheus counters with reg.
// Optional: the engine performs no I/O and never registers anything on its
// own (spec.md §5).
func (e *Engine) RegisterMetrics(reg prometheus.Registerer) error {
	return e.metrics.Collect(reg)
}

// Serialize returns the engine's full state in the binary layout of
// spec.md §4.4.
func (e *Engine) Serialize() []byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return serialize.Serialize(e.parser)
}

// Deserialize replaces the engine's entire state from data previously
// produced by Serialize (spec.md §4.4, §5 "deserialize" — an exclusive,
// mutating operation). A malformed buffer leaves the index in the cleared
// state, not the prior one (spec.md §7), logs the error wrapped with
// ErrMalformedBuffer's message, and returns false.
func (e *Engine) Deserialize(data []byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := serialize.Deserialize(data, e.pcfg)
	if err != nil {
		log.Error("%s", errorx.Decorate(err, ErrMalformedBuffer.Error()))
		e.parser = parser.New(e.pcfg)
		e.matcher = match.New(e.parser, e.diag, e.metrics)
		return false
	}
	e.parser = p
	e.matcher = match.New(e.parser, e.diag, e.metrics)
	return true
}

// Clear resets the engine to an empty state, discarding all parsed rules
// and indexes (spec.md §5 "clear").
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parser = parser.New(e.pcfg)
	e.matcher = match.New(e.parser, e.diag, e.metrics)
}
