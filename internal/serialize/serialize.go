// Package serialize implements the compact binary format of spec.md §4.4:
// a header of bucket counts, the filter buckets themselves in declared
// order, then the length-prefixed Bloom filters, no-fingerprint domain hash
// sets, host-anchored hash maps, and finally the cosmetic index's selector
// maps.
//
// Deserialized Filter records are "borrowed": their strings reference
// slices of the input buffer rather than owning independent copies, per
// spec.md §4.4's borrowed_data note — the caller must keep the buffer alive
// for as long as the deserialized engine is in use.
package serialize

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"github.com/wizos/adblockcore/internal/bloom"
	"github.com/wizos/adblockcore/internal/cosmetic"
	"github.com/wizos/adblockcore/internal/hashindex"
	"github.com/wizos/adblockcore/internal/parser"
	"github.com/wizos/adblockcore/internal/rule"
)

// bucketOrder lists the eleven Filter-array buckets in the exact order they
// are written and read, so the header's bucket-count list lines up
// positionally with the bodies that follow it.
var bucketOrder = []string{
	"Filters",
	"ExceptionFilters",
	"NoFingerprintDomainOnlyFilters",
	"NoFingerprintAntiDomainOnlyFilters",
	"NoFingerprintFilters",
	"NoFingerprintDomainOnlyExceptionFilters",
	"NoFingerprintAntiDomainOnlyExceptionFilters",
	"NoFingerprintExceptionFilters",
	"HostAnchoredFilters",
	"HostAnchoredExceptionFilters",
	"HTMLFilters",
}

func bucketsOf(p *parser.Parser) [][]rule.Filter {
	return [][]rule.Filter{
		p.Filters,
		p.ExceptionFilters,
		p.NoFingerprintDomainOnlyFilters,
		p.NoFingerprintAntiDomainOnlyFilters,
		p.NoFingerprintFilters,
		p.NoFingerprintDomainOnlyExceptionFilters,
		p.NoFingerprintAntiDomainOnlyExceptionFilters,
		p.NoFingerprintExceptionFilters,
		p.HostAnchoredFilters,
		p.HostAnchoredExceptionFilters,
		p.HTMLFilters,
	}
}

// Serialize writes p's full state to a single byte slice per §4.4: a
// NUL-terminated, comma-separated hex header of the eleven bucket counts,
// then each bucket's filters in order, then the two Bloom filters' raw
// bytes, the four no-fingerprint domain hash sets, the two host-anchored
// hash maps, and the cosmetic index's two selector maps.
func Serialize(p *parser.Parser) []byte {
	buckets := bucketsOf(p)

	counts := make([]string, len(buckets))
	for i, b := range buckets {
		counts[i] = strconv.FormatInt(int64(len(b)), 16)
	}
	header := strings.Join(counts, ",") + "\x00"

	var out []byte
	out = append(out, header...)

	for _, b := range buckets {
		for i := range b {
			out = appendFilter(out, &b[i])
		}
	}

	out = appendBlock(out, p.BlockBloom.Bytes())
	out = appendBlock(out, p.ExceptionBloom.Bytes())
	out = appendBlock(out, p.NoFingerprintDomainHashSet.SerializeOut())
	out = appendBlock(out, p.NoFingerprintAntiDomainHashSet.SerializeOut())
	out = appendBlock(out, p.NoFingerprintDomainExceptionHashSet.SerializeOut())
	out = appendBlock(out, p.NoFingerprintAntiDomainExceptionHashSet.SerializeOut())
	out = appendBlock(out, p.HostAnchoredIndex.SerializeOut())
	out = appendBlock(out, p.HostAnchoredExceptionIndex.SerializeOut())
	out = appendBlock(out, p.Cosmetic.SerializeSelectors())
	out = appendBlock(out, p.Cosmetic.SerializeExceptions())

	return out
}

// appendBlock writes a 4-byte little-endian length prefix followed by data.
func appendBlock(out []byte, data []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	out = append(out, lenBuf[:]...)
	return append(out, data...)
}

func readBlock(data []byte, off int) (block []byte, next int, err error) {
	if off+4 > len(data) {
		return nil, 0, fmt.Errorf("serialize: truncated block length at offset %d", off)
	}
	n := int(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4
	if off+n > len(data) {
		return nil, 0, fmt.Errorf("serialize: truncated block body at offset %d", off)
	}
	return data[off : off+n], off + n, nil
}

// appendFilter writes a single rule.Filter: the FilterType, FilterOption
// and AntiOption masks as 4-byte little-endian words, then five
// length-prefixed strings in order — data, host, fingerprint, the domain
// list (with an optional "~#"+tag+"," prefix folded in), and the original
// rule text (empty when it was not preserved).
func appendFilter(out []byte, f *rule.Filter) []byte {
	var typeBuf [4]byte
	binary.LittleEndian.PutUint32(typeBuf[:], uint32(f.Type))
	out = append(out, typeBuf[:]...)

	var optBuf [4]byte
	binary.LittleEndian.PutUint32(optBuf[:], uint32(f.Option))
	out = append(out, optBuf[:]...)

	var antiBuf [4]byte
	binary.LittleEndian.PutUint32(antiBuf[:], uint32(f.AntiOption))
	out = append(out, antiBuf[:]...)

	out = appendString(out, f.Data)
	out = appendString(out, f.Host)
	out = appendString(out, f.Fingerprint)

	domainField := ""
	if f.Tag != "" {
		domainField = "~#" + f.Tag + ","
	}
	domainField += encodeDomainList(f.DomainList)
	out = appendString(out, domainField)

	out = appendString(out, f.RuleDefinition)

	return out
}

func encodeDomainList(d rule.DomainList) string {
	parts := make([]string, 0, len(d.Allow)+len(d.Deny))
	parts = append(parts, d.Allow...)
	for _, deny := range d.Deny {
		parts = append(parts, "~"+deny)
	}
	return strings.Join(parts, "|")
}

func appendString(out []byte, s string) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	out = append(out, lenBuf[:]...)
	return append(out, s...)
}

func readString(data []byte, off int) (s string, next int, err error) {
	if off+4 > len(data) {
		return "", 0, fmt.Errorf("serialize: truncated string length at offset %d", off)
	}
	n := int(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4
	if off+n > len(data) {
		return "", 0, fmt.Errorf("serialize: truncated string body at offset %d", off)
	}
	// Borrowed: this substring references data directly, it is not copied.
	if n == 0 {
		return "", off, nil
	}
	return unsafe.String(&data[off], n), off + n, nil
}

func readFilter(data []byte, off int) (rule.Filter, int, error) {
	var f rule.Filter
	f.Borrowed = true

	if off+12 > len(data) {
		return rule.Filter{}, 0, fmt.Errorf("serialize: truncated filter masks at offset %d", off)
	}
	f.Type = rule.FilterType(binary.LittleEndian.Uint32(data[off : off+4]))
	f.Option = rule.FilterOption(binary.LittleEndian.Uint32(data[off+4 : off+8]))
	f.AntiOption = rule.FilterOption(binary.LittleEndian.Uint32(data[off+8 : off+12]))
	off += 12

	var err error
	if f.Data, off, err = readString(data, off); err != nil {
		return rule.Filter{}, 0, err
	}
	if f.Host, off, err = readString(data, off); err != nil {
		return rule.Filter{}, 0, err
	}
	if f.Fingerprint, off, err = readString(data, off); err != nil {
		return rule.Filter{}, 0, err
	}

	var domainField string
	if domainField, off, err = readString(data, off); err != nil {
		return rule.Filter{}, 0, err
	}
	if strings.HasPrefix(domainField, "~#") {
		rest := domainField[2:]
		if comma := strings.IndexByte(rest, ','); comma >= 0 {
			f.Tag = rest[:comma]
			domainField = rest[comma+1:]
		}
	}
	f.DomainList = rule.ParseDomainList(domainField)

	if f.RuleDefinition, off, err = readString(data, off); err != nil {
		return rule.Filter{}, 0, err
	}

	return f, off, nil
}

// Deserialize reconstructs a fully populated *parser.Parser from bytes
// produced by Serialize, without rehashing the hash-index buckets (§4.4):
// the host-anchored maps and domain hash sets are rebuilt byte-for-byte via
// hashindex.DeserializeMap/DeserializeSet, preserving their exact slot
// layout. cfg supplies the Bloom sizes/hash-function counts and the regex
// facility used for re-parsing any Regex-type rules found in the buckets
// (regex.Compiled values are never serialized, only the pattern text, via
// the rule's Data field).
func Deserialize(data []byte, cfg parser.Config) (*parser.Parser, error) {
	nul := indexByte(data, 0)
	if nul < 0 {
		return nil, fmt.Errorf("serialize: missing header terminator")
	}
	header := string(data[:nul])
	off := nul + 1

	countStrs := strings.Split(header, ",")
	if len(countStrs) != len(bucketOrder) {
		return nil, fmt.Errorf("serialize: expected %d bucket counts, got %d", len(bucketOrder), len(countStrs))
	}
	counts := make([]int, len(countStrs))
	for i, s := range countStrs {
		n, err := strconv.ParseInt(s, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("serialize: bad bucket count %q: %w", s, err)
		}
		counts[i] = int(n)
	}

	p := parser.New(cfg)
	bucketSlices := make([][]rule.Filter, len(bucketOrder))
	for i, n := range counts {
		bucket := make([]rule.Filter, n)
		for j := 0; j < n; j++ {
			f, next, err := readFilter(data, off)
			if err != nil {
				return nil, err
			}
			off = next
			if f.Type.Has(rule.Regex) && cfg.RegexFacility != nil {
				if compiled, cerr := cfg.RegexFacility.Compile(f.Data); cerr == nil {
					f.Regex = compiled
				}
			}
			bucket[j] = f
		}
		bucketSlices[i] = bucket
	}
	assignBuckets(p, bucketSlices)

	var blk, exc, domHash, antiDomHash, domExcHash, antiDomExcHash, hostIdx, hostExcIdx, selectors, exceptions []byte
	var err error
	for _, target := range []*[]byte{
		&blk, &exc, &domHash, &antiDomHash, &domExcHash, &antiDomExcHash,
		&hostIdx, &hostExcIdx, &selectors, &exceptions,
	} {
		if *target, off, err = readBlock(data, off); err != nil {
			return nil, err
		}
	}

	p.BlockBloom = bloom.FromBytes(blk, cfg.BlockBloomBits, cfg.BlockBloomK)
	p.ExceptionBloom = bloom.FromBytes(exc, cfg.ExceptionBloomBits, cfg.ExceptionBloomK)

	if p.NoFingerprintDomainHashSet, _, err = hashindex.DeserializeSet(domHash); err != nil {
		return nil, err
	}
	if p.NoFingerprintAntiDomainHashSet, _, err = hashindex.DeserializeSet(antiDomHash); err != nil {
		return nil, err
	}
	if p.NoFingerprintDomainExceptionHashSet, _, err = hashindex.DeserializeSet(domExcHash); err != nil {
		return nil, err
	}
	if p.NoFingerprintAntiDomainExceptionHashSet, _, err = hashindex.DeserializeSet(antiDomExcHash); err != nil {
		return nil, err
	}
	if p.HostAnchoredIndex, _, err = hashindex.DeserializeMap(hostIdx); err != nil {
		return nil, err
	}
	if p.HostAnchoredExceptionIndex, _, err = hashindex.DeserializeMap(hostExcIdx); err != nil {
		return nil, err
	}
	if p.Cosmetic, err = cosmetic.LoadFromBytes(selectors, exceptions); err != nil {
		return nil, err
	}

	return p, nil
}

func indexByte(data []byte, b byte) int {
	for i, c := range data {
		if c == b {
			return i
		}
	}
	return -1
}

func assignBuckets(p *parser.Parser, b [][]rule.Filter) {
	p.Filters = b[0]
	p.ExceptionFilters = b[1]
	p.NoFingerprintDomainOnlyFilters = b[2]
	p.NoFingerprintAntiDomainOnlyFilters = b[3]
	p.NoFingerprintFilters = b[4]
	p.NoFingerprintDomainOnlyExceptionFilters = b[5]
	p.NoFingerprintAntiDomainOnlyExceptionFilters = b[6]
	p.NoFingerprintExceptionFilters = b[7]
	p.HostAnchoredFilters = b[8]
	p.HostAnchoredExceptionFilters = b[9]
	p.HTMLFilters = b[10]
}
