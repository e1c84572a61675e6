package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizos/adblockcore/internal/rule"
)

func TestParseHostAnchoredHostOnly(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("||example.com^", false))
	require.Len(t, p.HostAnchoredFilters, 1)
	f := p.HostAnchoredFilters[0]
	assert.Equal(t, "example.com", f.Host)
	assert.True(t, f.Type.Has(rule.HostAnchored|rule.HostOnly))
}

func TestParseHostAnchoredWithPathAndRightAnchor(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("||example.com/whitelist^|", false))
	// Has a fingerprint ("/white"), so it lands in the fingerprinted bucket.
	require.Len(t, p.Filters, 1)
	f := p.Filters[0]
	assert.True(t, f.Type.Has(rule.HostAnchored))
	assert.False(t, f.Type.Has(rule.HostOnly))
	assert.True(t, f.Type.Has(rule.RightAnchored))
	assert.Equal(t, "example.com", f.Host)
	assert.Equal(t, "/whitelist^", f.Data)
}

func TestParseExceptionRule(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("@@||example.com^", false))
	require.Len(t, p.HostAnchoredExceptionFilters, 1)
	assert.True(t, p.HostAnchoredExceptionFilters[0].Type.Has(rule.Exception))
}

func TestParseRegexRule(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse(`/ad\d+\.js/`, false))
	require.Len(t, p.NoFingerprintFilters, 1)
	f := p.NoFingerprintFilters[0]
	assert.True(t, f.Type.Has(rule.Regex))
	require.NotNil(t, f.Regex)
	assert.True(t, f.Regex.MatchString("ad123.js"))
}

func TestParseElementHiding(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("a.com##.promo", false))
	sel, ok := p.Cosmetic.GetElementHidingSelectors("a.com")
	require.True(t, ok)
	assert.Equal(t, ".promo", sel)
}

func TestParseElementHidingException(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("a.com#@#.promo", false))
	sel, ok := p.Cosmetic.GetElementHidingExceptionSelectors("a.com")
	require.True(t, ok)
	assert.Equal(t, ".promo", sel)
}

func TestParseHTMLFiltering(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse(`a.com$$script[tag-content="ad"]`, false))
	require.Len(t, p.HTMLFilters, 1)
	assert.Equal(t, `script[tag-content="ad"]`, p.HTMLFilters[0].Data)
}

func TestParseDomainOption(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("ads$domain=a.com|~b.com", false))
	require.Len(t, p.NoFingerprintFilters, 1)
	f := p.NoFingerprintFilters[0]
	assert.Equal(t, []string{"a.com"}, f.DomainList.Allow)
	assert.Equal(t, []string{"b.com"}, f.DomainList.Deny)
}

func TestParseDomainOnlyRoutesToDomainOnlyBucket(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("ad$domain=a.com", false))
	require.Len(t, p.NoFingerprintDomainOnlyFilters, 1)
	assert.True(t, p.NoFingerprintDomainHashSet.Contains("a.com"))
}

func TestParseAntiDomainOnlyRoutesToAntiDomainBucket(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("ad$domain=~a.com", false))
	require.Len(t, p.NoFingerprintAntiDomainOnlyFilters, 1)
	assert.True(t, p.NoFingerprintAntiDomainHashSet.Contains("a.com"))
}

func TestParseTagOption(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("tracker.js$tag=analytics", false))
	require.Len(t, p.Filters, 1)
	assert.Equal(t, "analytics", p.Filters[0].Tag)
}

func TestParseResourceTypeOption(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("ads$script,~image", false))
	require.Len(t, p.NoFingerprintFilters, 1)
	f := p.NoFingerprintFilters[0]
	assert.Equal(t, rule.OptScript, f.Option)
	assert.Equal(t, rule.OptImage, f.AntiOption)
}

func TestParseUnknownOptionDropsRule(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("ads$totally-bogus-option", false))
	assert.Empty(t, p.NoFingerprintFilters)
	assert.Empty(t, p.Filters)
	_, unsupported := p.UnsupportedOptions["totally-bogus-option"]
	assert.True(t, unsupported)
}

func TestParseSkipsCommentsAndOversizedLines(t *testing.T) {
	p := New(DefaultConfig())
	longLine := make([]byte, MaxLineLength+10)
	for i := range longLine {
		longLine[i] = 'a'
	}
	text := "! this is a comment\n[Adblock Plus 2.0]\n" + string(longLine) + "\n||example.com^"
	require.True(t, p.Parse(text, false))
	require.Len(t, p.HostAnchoredFilters, 1)
}

func TestParsePreservesRuleText(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("||example.com^", true))
	require.Len(t, p.HostAnchoredFilters, 1)
	assert.Equal(t, "||example.com^", p.HostAnchoredFilters[0].RuleDefinition)
}

func TestParseIncrementalMerge(t *testing.T) {
	p := New(DefaultConfig())
	require.True(t, p.Parse("||a.com^", false))
	require.True(t, p.Parse("||b.com^", false))
	assert.Len(t, p.HostAnchoredFilters, 2)
}

func TestSplitHost(t *testing.T) {
	host, rem := splitHost("example.com/path^")
	assert.Equal(t, "example.com", host)
	assert.Equal(t, "/path^", rem)

	host, rem = splitHost("example.com")
	assert.Equal(t, "example.com", host)
	assert.Equal(t, "", rem)
}
