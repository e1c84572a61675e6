// Package metrics exposes the matcher's observable counters — bloom saves,
// hash-set saves, and Bloom false positives (spec.md §4.2 step 4 and §4.5)
// — as Prometheus counters, the way the teacher's subsystems (required
// separately in its go.mod as github.com/prometheus/client_golang) expose
// theirs.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors groups the engine's Prometheus counters. A zero Collectors is
// not usable; construct with NewCollectors.
type Collectors struct {
	BloomSaves      prometheus.Counter
	HashSetSaves    prometheus.Counter
	FalsePositives  prometheus.Counter
	BlockMatches    prometheus.Counter
	ExceptionMatches prometheus.Counter
}

// NewCollectors creates a fresh, unregistered set of counters. Callers that
// want them exposed via an HTTP /metrics endpoint register them with their
// own prometheus.Registerer; the engine itself performs no I/O (spec.md §5)
// and never registers anything globally.
func NewCollectors() *Collectors {
	return &Collectors{
		BloomSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adblockcore",
			Subsystem: "matcher",
			Name:      "bloom_saves_total",
			Help:      "Fingerprinted-bucket scans (block or exception side) skipped because the bucket's Bloom filter reported no URL substring present.",
		}),
		HashSetSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adblockcore",
			Subsystem: "matcher",
			Name:      "hash_set_saves_total",
			Help:      "Bucket scans skipped by a hash-set gate: a domain-only or anti-domain-only domain-set check, or a host-anchored probe that found no matching rule.",
		}),
		FalsePositives: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adblockcore",
			Subsystem: "matcher",
			Name:      "bloom_false_positives_total",
			Help:      "Bloom-filter hits that did not survive the subsequent linear scan.",
		}),
		BlockMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adblockcore",
			Subsystem: "matcher",
			Name:      "block_matches_total",
			Help:      "Requests that matched a block rule (before exception evaluation).",
		}),
		ExceptionMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adblockcore",
			Subsystem: "matcher",
			Name:      "exception_matches_total",
			Help:      "Requests that matched an exception rule, overriding a block match.",
		}),
	}
}

// Collect registers all counters with reg. Optional; the engine works
// without a registry.
func (c *Collectors) Collect(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.BloomSaves, c.HashSetSaves, c.FalsePositives, c.BlockMatches, c.ExceptionMatches,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}
