// Package hashindex implements the open-addressed hash set/map of spec.md
// §4: generic containers keyed by domain strings or host-anchored filter
// strings, with a stable binary serialization layout that lets Deserialize
// rebuild the exact same table — including its probe sequence — without
// rehashing (§4.4).
//
// The hand-rolled table and custom serialization are deliberate: the binary
// layout is part of the wire contract (spec.md §9), so a standard map
// cannot be substituted without breaking byte-for-byte compatibility.
package hashindex

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

const defaultLoadFactorPercent = 70

// nextPow2 returns the smallest power of two >= n (minimum 8).
func nextPow2(n int) int {
	p := 8
	for p < n {
		p *= 2
	}
	return p
}

// Set is an open-addressed (linear probing) string set.
type Set struct {
	slots       []string
	occupied    []bool
	count       int
	loadPercent int
}

// NewSet returns a Set sized for at least capacityHint entries at the
// default load factor.
func NewSet(capacityHint int) *Set {
	n := nextPow2(capacityHint * 100 / defaultLoadFactorPercent)
	if n < 8 {
		n = 8
	}
	return &Set{
		slots:       make([]string, n),
		occupied:    make([]bool, n),
		loadPercent: defaultLoadFactorPercent,
	}
}

func (s *Set) index(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(s.slots)))
}

func (s *Set) growIfNeeded() {
	if (s.count+1)*100 <= len(s.slots)*s.loadPercent {
		return
	}
	old := s.slots
	oldOcc := s.occupied
	s.slots = make([]string, len(old)*2)
	s.occupied = make([]bool, len(oldOcc)*2)
	s.count = 0
	for i, occ := range oldOcc {
		if occ {
			s.insert(old[i])
		}
	}
}

func (s *Set) insert(key string) {
	i := s.index(key)
	for {
		if !s.occupied[i] {
			s.occupied[i] = true
			s.slots[i] = key
			s.count++
			return
		}
		if s.slots[i] == key {
			return
		}
		i = (i + 1) % len(s.slots)
	}
}

// Add inserts key into the set, growing the table if needed.
func (s *Set) Add(key string) {
	s.growIfNeeded()
	s.insert(key)
}

// Contains reports whether key is in the set.
func (s *Set) Contains(key string) bool {
	if len(s.slots) == 0 {
		return false
	}
	i := s.index(key)
	for probes := 0; probes < len(s.slots); probes++ {
		if !s.occupied[i] {
			return false
		}
		if s.slots[i] == key {
			return true
		}
		i = (i + 1) % len(s.slots)
	}
	return false
}

// ContainsAny reports whether any of keys is in the set — used by the
// matcher's parent-domain-chain probes (§4.2).
func (s *Set) ContainsAny(keys []string) bool {
	for _, k := range keys {
		if s.Contains(k) {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (s *Set) Len() int { return s.count }

// SerializeOut writes the set's exact bucket array to a byte buffer so that
// DeserializeSet can rebuild it without rehashing.
func (s *Set) SerializeOut() []byte {
	buf := make([]byte, 0, 5+len(s.slots)*4)
	var hdr [5]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(s.slots)))
	hdr[4] = byte(s.loadPercent)
	buf = append(buf, hdr[:]...)

	for i, occ := range s.occupied {
		if !occ {
			buf = append(buf, 0)
			continue
		}
		buf = append(buf, 1)
		key := s.slots[i]
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(key)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, key...)
	}
	return buf
}

// DeserializeSet reconstructs a Set from bytes produced by SerializeOut,
// returning the number of bytes consumed.
func DeserializeSet(data []byte) (*Set, int, error) {
	if len(data) < 5 {
		return nil, 0, fmt.Errorf("hashindex: truncated set header")
	}
	bucketCount := int(binary.LittleEndian.Uint32(data[0:4]))
	loadPercent := int(data[4])
	off := 5

	s := &Set{
		slots:       make([]string, bucketCount),
		occupied:    make([]bool, bucketCount),
		loadPercent: loadPercent,
	}
	for i := 0; i < bucketCount; i++ {
		if off >= len(data) {
			return nil, 0, fmt.Errorf("hashindex: truncated set body")
		}
		flag := data[off]
		off++
		if flag == 0 {
			continue
		}
		if off+2 > len(data) {
			return nil, 0, fmt.Errorf("hashindex: truncated set key length")
		}
		klen := int(binary.LittleEndian.Uint16(data[off : off+2]))
		off += 2
		if off+klen > len(data) {
			return nil, 0, fmt.Errorf("hashindex: truncated set key")
		}
		s.slots[i] = string(data[off : off+klen])
		s.occupied[i] = true
		s.count++
		off += klen
	}
	return s, off, nil
}

// Map is an open-addressed (linear probing) string-to-string map, used for
// the cosmetic selector indexes (§4.3).
type Map struct {
	keys        []string
	vals        []string
	occupied    []bool
	count       int
	loadPercent int
}

// NewMap returns a Map sized for at least capacityHint entries.
func NewMap(capacityHint int) *Map {
	n := nextPow2(capacityHint * 100 / defaultLoadFactorPercent)
	if n < 8 {
		n = 8
	}
	return &Map{
		keys:        make([]string, n),
		vals:        make([]string, n),
		occupied:    make([]bool, n),
		loadPercent: defaultLoadFactorPercent,
	}
}

func (m *Map) index(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(m.keys)))
}

func (m *Map) growIfNeeded() {
	if (m.count+1)*100 <= len(m.keys)*m.loadPercent {
		return
	}
	oldKeys, oldVals, oldOcc := m.keys, m.vals, m.occupied
	m.keys = make([]string, len(oldKeys)*2)
	m.vals = make([]string, len(oldVals)*2)
	m.occupied = make([]bool, len(oldOcc)*2)
	m.count = 0
	for i, occ := range oldOcc {
		if occ {
			m.insert(oldKeys[i], oldVals[i])
		}
	}
}

func (m *Map) insert(key, val string) {
	i := m.index(key)
	for {
		if !m.occupied[i] {
			m.occupied[i] = true
			m.keys[i] = key
			m.vals[i] = val
			m.count++
			return
		}
		if m.keys[i] == key {
			m.vals[i] = val
			return
		}
		i = (i + 1) % len(m.keys)
	}
}

// Set inserts or overwrites the value for key.
func (m *Map) Set(key, val string) {
	m.growIfNeeded()
	m.insert(key, val)
}

// Append concatenates extra onto the existing value for key (joined by a
// comma, as §4.3 describes for pre-aggregated selector lists), or sets it
// if key is new.
func (m *Map) Append(key, extra string) {
	if cur, ok := m.Get(key); ok && cur != "" {
		m.Set(key, cur+","+extra)
		return
	}
	m.Set(key, extra)
}

// Get returns the value for key, if present.
func (m *Map) Get(key string) (string, bool) {
	if len(m.keys) == 0 {
		return "", false
	}
	i := m.index(key)
	for probes := 0; probes < len(m.keys); probes++ {
		if !m.occupied[i] {
			return "", false
		}
		if m.keys[i] == key {
			return m.vals[i], true
		}
		i = (i + 1) % len(m.keys)
	}
	return "", false
}

// Len returns the number of entries.
func (m *Map) Len() int { return m.count }

// SerializeOut writes the map's exact bucket array to a byte buffer.
func (m *Map) SerializeOut() []byte {
	buf := make([]byte, 0, 5+len(m.keys)*8)
	var hdr [5]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(m.keys)))
	hdr[4] = byte(m.loadPercent)
	buf = append(buf, hdr[:]...)

	for i, occ := range m.occupied {
		if !occ {
			buf = append(buf, 0)
			continue
		}
		buf = append(buf, 1)
		var klenBuf, vlenBuf [2]byte
		binary.LittleEndian.PutUint16(klenBuf[:], uint16(len(m.keys[i])))
		binary.LittleEndian.PutUint16(vlenBuf[:], uint16(len(m.vals[i])))
		buf = append(buf, klenBuf[:]...)
		buf = append(buf, m.keys[i]...)
		buf = append(buf, vlenBuf[:]...)
		buf = append(buf, m.vals[i]...)
	}
	return buf
}

// DeserializeMap reconstructs a Map from bytes produced by SerializeOut,
// returning the number of bytes consumed.
func DeserializeMap(data []byte) (*Map, int, error) {
	if len(data) < 5 {
		return nil, 0, fmt.Errorf("hashindex: truncated map header")
	}
	bucketCount := int(binary.LittleEndian.Uint32(data[0:4]))
	loadPercent := int(data[4])
	off := 5

	m := &Map{
		keys:        make([]string, bucketCount),
		vals:        make([]string, bucketCount),
		occupied:    make([]bool, bucketCount),
		loadPercent: loadPercent,
	}
	for i := 0; i < bucketCount; i++ {
		if off >= len(data) {
			return nil, 0, fmt.Errorf("hashindex: truncated map body")
		}
		flag := data[off]
		off++
		if flag == 0 {
			continue
		}
		if off+2 > len(data) {
			return nil, 0, fmt.Errorf("hashindex: truncated map key length")
		}
		klen := int(binary.LittleEndian.Uint16(data[off : off+2]))
		off += 2
		if off+klen > len(data) {
			return nil, 0, fmt.Errorf("hashindex: truncated map key")
		}
		key := string(data[off : off+klen])
		off += klen

		if off+2 > len(data) {
			return nil, 0, fmt.Errorf("hashindex: truncated map value length")
		}
		vlen := int(binary.LittleEndian.Uint16(data[off : off+2]))
		off += 2
		if off+vlen > len(data) {
			return nil, 0, fmt.Errorf("hashindex: truncated map value")
		}
		val := string(data[off : off+vlen])
		off += vlen

		m.keys[i] = key
		m.vals[i] = val
		m.occupied[i] = true
		m.count++
	}
	return m, off, nil
}
