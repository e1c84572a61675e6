package parser

import (
	"fmt"
	"os"
	"runtime"
	"testing"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/stretchr/testify/require"
)

// TestLotsOfRulesMemoryUsage parses a large synthetic filter list and checks
// that resident memory grows roughly in proportion to rule count rather than
// some multiple of it — a coarse regression guard against an accidental
// per-rule allocation blowup, adapted from the teacher's own memory-usage
// test over dnsfilter.Dnsfilter.
func TestLotsOfRulesMemoryUsage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping memory regression test in -short mode")
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	require.NoError(t, err)

	runtime.GC()
	before, err := proc.MemoryInfo()
	require.NoError(t, err)

	const ruleCount = 200_000
	p := New(DefaultConfig())
	for i := 0; i < ruleCount; i++ {
		p.Parse(fmt.Sprintf("||example%d.com/path/to/ad%d.js^$domain=site%d.com", i, i, i%1000), false)
	}
	// Each rule has a path, so it is not HostOnly and is routed by its
	// fingerprint ("/path/") into the fingerprinted bucket.
	require.Len(t, p.Filters, ruleCount)

	runtime.GC()
	after, err := proc.MemoryInfo()
	require.NoError(t, err)

	grownBytes := int64(after.RSS) - int64(before.RSS)
	perRule := float64(grownBytes) / float64(ruleCount)
	t.Logf("RSS grew by %d bytes for %d rules (%.1f bytes/rule)", grownBytes, ruleCount, perRule)

	// Generous bound: each rule is a handful of short strings plus fixed
	// overhead, not multi-kilobyte. A regression that starts retaining
	// whole buffers per rule would blow well past this.
	require.Less(t, perRule, 4096.0)
}
