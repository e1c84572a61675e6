// Package bloom implements the counting-free Bloom filter of spec.md §4:
// a fixed-size bit array with k hash functions derived from two seeded
// digests by double hashing,
// supporting Add, Contains, and a rolling SubstringExists query over every
// length-N substring of a text.
package bloom

import (
	"github.com/cespare/xxhash/v2"
)

// Filter is a counting-free Bloom filter. The zero value is not usable;
// construct with New.
type Filter struct {
	bits    []uint64
	numBits uint64
	k       int
}

// New returns a Bloom filter sized to hold at least numBits bits, using k
// hash functions derived from two independent xxhash digests (double
// hashing: h_i = h1 + i*h2, the standard Kirsch-Mitzenmacher construction,
// which needs only two real hash computations regardless of k).
func New(numBits uint64, k int) *Filter {
	if numBits == 0 {
		numBits = 1
	}
	if k < 1 {
		k = 1
	}
	words := (numBits + 63) / 64
	return &Filter{
		bits:    make([]uint64, words),
		numBits: words * 64,
		k:       k,
	}
}

// digests returns the two base hashes used to derive all k bit positions
// for key.
func digests(key string) (h1, h2 uint64) {
	h1 = xxhash.Sum64String(key)
	// A distinct seed for the second digest: hash the same bytes again
	// behind a one-byte domain separator so h2 is independent of h1.
	var buf [1]byte
	buf[0] = 0x5b
	d := xxhash.New()
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(key)
	h2 = d.Sum64()
	return h1, h2
}

// Add sets the k bits derived from key.
func (f *Filter) Add(key string) {
	h1, h2 := digests(key)
	for i := 0; i < f.k; i++ {
		pos := (h1 + uint64(i)*h2) % f.numBits
		f.bits[pos/64] |= 1 << (pos % 64)
	}
}

// Contains reports whether every bit derived from key is set. A true result
// may be a false positive; a false result is never a false negative.
func (f *Filter) Contains(key string) bool {
	h1, h2 := digests(key)
	for i := 0; i < f.k; i++ {
		pos := (h1 + uint64(i)*h2) % f.numBits
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// SubstringExists reports whether any length-n substring of text is
// Contains-positive in f. Used to pre-filter a URL against the block/
// exception Bloom filters before committing to a linear scan (§4.2 step 4).
func (f *Filter) SubstringExists(text string, n int) bool {
	if len(text) < n {
		return false
	}
	for start := 0; start+n <= len(text); start++ {
		if f.Contains(text[start : start+n]) {
			return true
		}
	}
	return false
}

// Bytes returns the raw bit array for serialization (§4.4).
func (f *Filter) Bytes() []byte {
	out := make([]byte, len(f.bits)*8)
	for i, w := range f.bits {
		for b := 0; b < 8; b++ {
			out[i*8+b] = byte(w >> (8 * b))
		}
	}
	return out
}

// NumBits reports the filter's bit-array size (rounded up to a word
// boundary by New).
func (f *Filter) NumBits() uint64 { return f.numBits }

// K reports the number of hash functions.
func (f *Filter) K() int { return f.k }

// FromBytes reconstructs a Filter from bytes previously produced by Bytes,
// for a bit array of numBits bits and k hash functions (§4.4 deserialize).
func FromBytes(data []byte, numBits uint64, k int) *Filter {
	f := New(numBits, k)
	words := len(f.bits)
	for i := 0; i < words && i*8 < len(data); i++ {
		var w uint64
		for b := 0; b < 8 && i*8+b < len(data); b++ {
			w |= uint64(data[i*8+b]) << (8 * b)
		}
		f.bits[i] = w
	}
	return f
}

// RequestBloom is the cheap, per-request containment oracle of §4.2 step 4:
// a k=1, 1024-bit Bloom built over every adjacent 2-byte substring of a URL,
// consulted by a filter's match predicate to early-reject patterns whose
// literal 2-byte atoms are absent from the URL.
type RequestBloom struct {
	inner *Filter
}

// requestBloomBits and requestBloomK are fixed by spec.md §4.2 step 4.
const (
	requestBloomBits = 1024
	requestBloomK    = 1
)

// NewRequestBloom builds a per-request 2-byte Bloom over url.
func NewRequestBloom(url string) *RequestBloom {
	f := New(requestBloomBits, requestBloomK)
	for i := 0; i+2 <= len(url); i++ {
		f.Add(url[i : i+2])
	}
	return &RequestBloom{inner: f}
}

// MayContain2Gram reports whether the 2-byte string gram may be present in
// the URL this RequestBloom was built from. A false result is a definite
// absence: the caller may early-reject a pattern whose literal run requires
// this 2-gram.
func (r *RequestBloom) MayContain2Gram(gram string) bool {
	if len(gram) != 2 {
		return true
	}
	return r.inner.Contains(gram)
}
