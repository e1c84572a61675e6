// Package fingerprint implements the fingerprint oracle of §4.1.3: for a
// candidate filter pattern it extracts a canonical N-byte substring suitable
// as a Bloom-filter key.
package fingerprint

import "strings"

// Size is the fingerprint length in bytes (the spec's "N", default 6).
const Size = 6

// badFingerprints is a static denylist of fingerprints known to be too
// common to be useful Bloom keys (they would saturate the filter with
// false positives). Curated out-of-band from internal/diagnostics output,
// per §4.5.
var badFingerprints = map[string]struct{}{
	"google": {},
	"images": {},
	"static": {},
	"assets": {},
	"script": {},
	"public": {},
	"upload": {},
	"shared": {},
}

// badSubstrings is a static list of substrings that, if present anywhere in
// a candidate window, disqualify it as a fingerprint (too generic to be
// selective).
var badSubstrings = []string{
	"/ads/",
	".com/",
	"http:",
	"https",
	"/www.",
}

// isFingerprintChar reports whether r is usable inside a fingerprint. The
// wildcard, anchor and separator-anchor characters would make the
// "substring" claim meaningless against a literal URL scan.
func isFingerprintChar(r byte) bool {
	switch r {
	case '|', '*', '^':
		return false
	default:
		return true
	}
}

// containsBadSubstring reports whether window contains any statically
// denylisted substring.
func containsBadSubstring(window string) bool {
	for _, bad := range badSubstrings {
		if strings.Contains(window, bad) {
			return true
		}
	}
	return false
}

// Extract returns the first length-Size substring of data satisfying the
// fingerprint-char, bad-fingerprint and bad-substring constraints of §4.1.3,
// starting the scan at skip bytes into data (callers pass the length of a
// host-anchored rule's host prefix, or 0). ok is false if no window
// qualifies, in which case the rule has no fingerprint and is routed to a
// no-fingerprint bucket.
func Extract(data string, skip int) (fp string, ok bool) {
	if skip < 0 || skip > len(data) {
		skip = 0
	}
	body := data[skip:]
	if len(body) < Size {
		return "", false
	}

	for start := 0; start+Size <= len(body); start++ {
		window := body[start : start+Size]
		if !allFingerprintChars(window) {
			continue
		}
		if _, bad := badFingerprints[window]; bad {
			continue
		}
		if containsBadSubstring(window) {
			continue
		}
		return window, true
	}
	return "", false
}

func allFingerprintChars(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isFingerprintChar(s[i]) {
			return false
		}
	}
	return true
}

// IsFingerprintChar exposes the character predicate for callers (and tests)
// that need to validate a fingerprint independently of Extract, per the
// Testable Properties in spec.md §8.
func IsFingerprintChar(r byte) bool { return isFingerprintChar(r) }
