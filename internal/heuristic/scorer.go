package heuristic

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"

	"github.com/docvet/qrscan/internal/model"
)

// Rule weights. Each matched rule casts a weighted vote for a category;
// the highest-voted category wins and the normalized vote margin becomes
// the confidence. A constant benign baseline vote keeps clean URLs benign
// and dampens single weak signals.
const (
	benignBaselineWeight  = 1.5
	suspiciousTLDWeight   = 2.0
	ipLiteralWeight       = 1.5
	shortenerWeight       = 1.0
	subdomainDepthWeight  = 1.0
	confusableHostWeight  = 2.5
	longQueryWeight       = 0.75
	riskyKeywordWeight    = 1.0
	percentEncodingWeight = 1.0
	veryLongURLWeight     = 0.75
)

// maxSubdomainDepth is the number of labels below the registrable domain
// above which a host is considered suspiciously deep.
const maxSubdomainDepth = 3

// longQueryBytes is the query-string length above which the long-query
// rule fires.
const longQueryBytes = 128

// suspiciousTLDs are top-level domains disproportionately used in
// phishing campaigns (free or loosely policed registries).
var suspiciousTLDs = map[string]bool{
	"ru": true,
	"cn": true,
	"tk": true,
	"ml": true,
	"ga": true,
	"cf": true,
	"gq": true,
}

// shortenerHosts are well-known URL shortening services. A shortened URL
// hides its real destination, which defeats review.
var shortenerHosts = map[string]bool{
	"bit.ly":      true,
	"tinyurl.com": true,
	"t.co":        true,
	"goo.gl":      true,
	"is.gd":       true,
	"ow.ly":       true,
	"buff.ly":     true,
	"rebrand.ly":  true,
	"cutt.ly":     true,
	"rb.gy":       true,
}

// riskyKeywords are credential- and payment-related terms whose presence
// in a URL correlates with phishing lures.
var riskyKeywords = []string{
	"login", "signin", "password", "bank", "paypal", "bitcoin",
	"verify", "account-update", "wallet",
}

// Scorer evaluates URLs against the local rule set.
//
// Design decision: Scorer carries no mutable state, so a single instance
// is safe for concurrent use by all classification workers.
type Scorer struct{}

// NewScorer returns a ready-to-use Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// vote is one rule's contribution to the final score.
type vote struct {
	category model.Category
	weight   float64
	rule     string
}

// Score evaluates a normalized URL and returns its heuristic category and
// confidence. The confidence is the winning category's normalized vote
// margin scaled below model.HeuristicConfidenceCap, so a heuristic score
// never outranks a service-backed verdict. Identical input always yields
// an identical score.
func (s *Scorer) Score(rawURL string) (model.Category, float64) {
	votes := s.evaluate(rawURL)

	totals := make(map[model.Category]float64)
	var sum float64
	for _, v := range votes {
		totals[v.category] += v.weight
		sum += v.weight
	}

	winner := model.CategoryBenign
	for category, total := range totals {
		switch {
		case total > totals[winner]:
			winner = category
		case total == totals[winner] && category.MoreSevereThan(winner):
			// Tie breaks toward the more severe category.
			winner = category
		}
	}

	var runnerUp float64
	for category, total := range totals {
		if category != winner && total > runnerUp {
			runnerUp = total
		}
	}

	margin := (totals[winner] - runnerUp) / sum
	return winner, margin * model.HeuristicConfidenceCap
}

// evaluate runs every rule against the URL and collects the votes.
// The benign baseline is always present so the vote sum is never zero.
func (s *Scorer) evaluate(rawURL string) []vote {
	votes := []vote{{category: model.CategoryBenign, weight: benignBaselineWeight, rule: "baseline"}}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		// An unparseable candidate should not reach the scorer, but if it
		// does we have no signal either way.
		return votes
	}
	host := strings.ToLower(u.Hostname())

	if tld := publicsuffix.List.PublicSuffix(host); suspiciousTLDs[tld] {
		votes = append(votes, vote{model.CategorySuspicious, suspiciousTLDWeight, "suspicious_tld"})
	}

	if net.ParseIP(host) != nil {
		votes = append(votes, vote{model.CategorySuspicious, ipLiteralWeight, "ip_literal_host"})
	}

	if shortenerHosts[host] {
		votes = append(votes, vote{model.CategorySuspicious, shortenerWeight, "url_shortener"})
	}

	if subdomainDepth(host) > maxSubdomainDepth {
		votes = append(votes, vote{model.CategorySuspicious, subdomainDepthWeight, "deep_subdomains"})
	}

	if isConfusableHost(host) {
		votes = append(votes, vote{model.CategoryMalicious, confusableHostWeight, "confusable_host"})
	}

	if len(u.RawQuery) > longQueryBytes {
		votes = append(votes, vote{model.CategorySuspicious, longQueryWeight, "long_query"})
	}

	lower := strings.ToLower(rawURL)
	for _, keyword := range riskyKeywords {
		if strings.Contains(lower, keyword) {
			votes = append(votes, vote{model.CategorySuspicious, riskyKeywordWeight, "risky_keyword"})
			break
		}
	}

	if strings.Contains(rawURL, "%") && len(rawURL) > 100 {
		votes = append(votes, vote{model.CategorySuspicious, percentEncodingWeight, "heavy_encoding"})
	}

	if len(rawURL) > 200 {
		votes = append(votes, vote{model.CategorySuspicious, veryLongURLWeight, "very_long_url"})
	}

	return votes
}

// subdomainDepth returns the number of host labels below the registrable
// domain. For hosts without a derivable registrable domain (IP literals,
// bare TLDs) it returns 0.
func subdomainDepth(host string) int {
	if net.ParseIP(host) != nil {
		return 0
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return 0
	}
	if host == registrable {
		return 0
	}
	prefix := strings.TrimSuffix(host, "."+registrable)
	return strings.Count(prefix, ".") + 1
}

// isConfusableHost reports whether the host uses punycode that decodes to
// characters which change under NFKC normalization. Such hosts are the
// classic homoglyph trick: they render like a trusted domain while being
// a different one.
func isConfusableHost(host string) bool {
	if !strings.Contains(host, "xn--") {
		return false
	}
	decoded, err := idna.ToUnicode(host)
	if err != nil {
		// Undecodable punycode is itself a red flag.
		return true
	}
	return norm.NFKC.String(decoded) != decoded
}
