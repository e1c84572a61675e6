// Package diagnostics implements the bad-fingerprint diagnostics of
// spec.md §4.5: when the block Bloom filter false-positives, the matcher
// records the URL substring responsible so operators can curate the static
// bad-fingerprint list out-of-band.
package diagnostics

import (
	"sync"

	"github.com/wizos/adblockcore/internal/fingerprint"
)

// Registry records the first bad fingerprint discovered per URL. It is
// disabled by default; the engine calls Enable to turn it on at runtime
// (spec.md §6, enableBadFingerprintDetection()).
type Registry struct {
	mu      sync.Mutex
	enabled bool
	seen    map[string]struct{}
}

// NewRegistry returns a disabled Registry.
func NewRegistry() *Registry {
	return &Registry{seen: map[string]struct{}{}}
}

// Enable turns on recording. Idempotent.
func (r *Registry) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = true
}

// Enabled reports whether recording is currently on.
func (r *Registry) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// RecordFalsePositive slides a length-6 window over url and records the
// first window the Bloom filter reports present (per §4.5, only the first
// per URL is recorded). containsFn should be the Bloom filter's Contains
// method; the caller passes it in rather than this package importing
// internal/bloom, since diagnostics is a pure bookkeeping leaf with no
// index dependency of its own.
func (r *Registry) RecordFalsePositive(url string, containsFn func(key string) bool) {
	if !r.Enabled() {
		return
	}
	for start := 0; start+fingerprint.Size <= len(url); start++ {
		window := url[start : start+fingerprint.Size]
		if containsFn(window) {
			r.mu.Lock()
			r.seen[window] = struct{}{}
			r.mu.Unlock()
			return
		}
	}
}

// Fingerprints returns the recorded bad fingerprints, for curating the
// static denylist.
func (r *Registry) Fingerprints() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.seen))
	for fp := range r.seen {
		out = append(out, fp)
	}
	return out
}

// Clear empties the recorded set without changing the enabled flag.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = map[string]struct{}{}
}
