package match_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wizos/adblockcore/internal/diagnostics"
	"github.com/wizos/adblockcore/internal/match"
	"github.com/wizos/adblockcore/internal/metrics"
	"github.com/wizos/adblockcore/internal/parser"
	"github.com/wizos/adblockcore/internal/rule"
)

func newMatcher(text string) (*match.Matcher, *diagnostics.Registry, *metrics.Collectors) {
	p := parser.New(parser.DefaultConfig())
	p.Parse(text, false)
	diag := diagnostics.NewRegistry()
	diag.Enable()
	mc := metrics.NewCollectors()
	return match.New(p, diag, mc), diag, mc
}

var _ = Describe("Matcher", func() {
	Describe("host-anchored rules", func() {
		var m *match.Matcher

		BeforeEach(func() {
			m, _, _ = newMatcher("||example.com^")
		})

		It("blocks the exact host", func() {
			blocked, f, exc := m.Matches("http://example.com/ad.js", 0, "")
			Expect(blocked).To(BeTrue())
			Expect(f).NotTo(BeNil())
			Expect(exc).To(BeNil())
		})

		It("blocks subdomains", func() {
			blocked, _, _ := m.Matches("http://sub.example.com/ad.js", 0, "")
			Expect(blocked).To(BeTrue())
		})

		It("does not block a suffix-alike host", func() {
			blocked, _, _ := m.Matches("http://notexample.com/ad.js", 0, "")
			Expect(blocked).To(BeFalse())
		})
	})

	Describe("exception precedence", func() {
		It("a matching exception overrides a matching block rule", func() {
			m, _, _ := newMatcher("||example.com^\n@@||example.com/whitelist^")
			blocked, blockF, excF := m.Matches("http://example.com/whitelist/a", 0, "")
			Expect(blocked).To(BeFalse())
			Expect(blockF).NotTo(BeNil())
			Expect(excF).NotTo(BeNil())
		})

		It("leaves unrelated paths blocked", func() {
			m, _, _ := newMatcher("||example.com^\n@@||example.com/whitelist^")
			blocked, _, excF := m.Matches("http://example.com/ad.js", 0, "")
			Expect(blocked).To(BeTrue())
			Expect(excF).To(BeNil())
		})
	})

	Describe("wildcard patterns", func() {
		var m *match.Matcher

		BeforeEach(func() {
			m, _, _ = newMatcher("/banner/*")
		})

		It("matches any path containing the literal segment", func() {
			blocked, _, _ := m.Matches("http://cdn.x.com/banner/hero.png", rule.OptImage, "x.com")
			Expect(blocked).To(BeTrue())
		})

		It("does not match unrelated paths", func() {
			blocked, _, _ := m.Matches("http://cdn.x.com/style.css", rule.OptStyleSheet, "x.com")
			Expect(blocked).To(BeFalse())
		})
	})

	Describe("anchored-both-ends patterns", func() {
		It("requires an exact match, not just a matching prefix", func() {
			m, _, _ := newMatcher("|http://a.com/exact|")
			blocked, _, _ := m.Matches("http://a.com/exact", 0, "")
			Expect(blocked).To(BeTrue())

			blocked, _, _ = m.Matches("http://a.com/exactly-not-this", 0, "")
			Expect(blocked).To(BeFalse())
		})
	})

	Describe("domain-list gating", func() {
		var m *match.Matcher

		BeforeEach(func() {
			m, _, _ = newMatcher("ads$domain=a.com|~sub.a.com")
		})

		It("matches on the allowed domain", func() {
			blocked, _, _ := m.Matches("http://t.com/ads", 0, "a.com")
			Expect(blocked).To(BeTrue())
		})

		It("does not match on the denied subdomain", func() {
			blocked, _, _ := m.Matches("http://t.com/ads", 0, "sub.a.com")
			Expect(blocked).To(BeFalse())
		})

		It("does not match on an unrelated domain", func() {
			blocked, _, _ := m.Matches("http://t.com/ads", 0, "b.com")
			Expect(blocked).To(BeFalse())
		})
	})

	Describe("resource-type and third-party option gating", func() {
		It("only matches the declared resource type", func() {
			m, _, _ := newMatcher("ads$script")
			blocked, _, _ := m.Matches("http://t.com/ads", rule.OptScript, "")
			Expect(blocked).To(BeTrue())
			blocked, _, _ = m.Matches("http://t.com/ads", rule.OptImage, "")
			Expect(blocked).To(BeFalse())
		})

		It("only matches third-party requests when third-party is required", func() {
			m, _, _ := newMatcher("ads$third-party")
			blocked, _, _ := m.Matches("http://t.com/ads", 0, "t.com")
			Expect(blocked).To(BeFalse())
			blocked, _, _ = m.Matches("http://t.com/ads", 0, "other.com")
			Expect(blocked).To(BeTrue())
		})
	})

	Describe("cosmetic selectors", func() {
		It("returns the selector for the matching domain only", func() {
			m, _, _ := newMatcher("##.ad-banner\na.com##.promo")
			sel, ok := m.GetElementHidingSelectors("http://a.com/")
			Expect(ok).To(BeTrue())
			Expect(sel).To(ContainSubstring(".promo"))

			_, ok = m.GetElementHidingSelectors("http://b.com/")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("FindMatchingFilters", func() {
		It("ignores block/exception precedence and returns every match", func() {
			m, _, _ := newMatcher("||example.com^\n@@||example.com/whitelist^")
			filters := m.FindMatchingFilters("http://example.com/whitelist/a", 0, "")
			Expect(len(filters)).To(Equal(2))
		})
	})

	Describe("regex delegation", func() {
		It("matches through the external regex facility", func() {
			m, _, _ := newMatcher(`/ad\d+\.js/`)
			blocked, _, _ := m.Matches("http://t.com/ad42.js", 0, "")
			Expect(blocked).To(BeTrue())
			blocked, _, _ = m.Matches("http://t.com/script.js", 0, "")
			Expect(blocked).To(BeFalse())
		})
	})

	Describe("invalid request URLs", func() {
		It("never blocks a non-http(s)/ws(s)/ftp scheme", func() {
			m, _, _ := newMatcher("||example.com^")
			blocked, _, _ := m.Matches("mailto:foo@example.com", 0, "")
			Expect(blocked).To(BeFalse())
		})

		It("never blocks an unparseable URL", func() {
			m, _, _ := newMatcher("||example.com^")
			blocked, _, _ := m.Matches("://not a url", 0, "")
			Expect(blocked).To(BeFalse())
		})
	})

	Describe("bad-fingerprint diagnostics", func() {
		It("does not record anything for a clean match", func() {
			m, diag, mc := newMatcher("/banner/*")
			m.Matches("http://cdn.x.com/banner/hero.png", rule.OptImage, "x.com")
			Expect(diag.Fingerprints()).To(BeEmpty())
			_ = mc
		})
	})
})
