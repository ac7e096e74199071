package heuristic

import (
	"strings"
	"testing"

	"golang.org/x/net/idna"

	"github.com/docvet/qrscan/internal/model"
)

func TestScorer_Score(t *testing.T) {
	t.Parallel()

	scorer := NewScorer()

	t.Run("clean url is benign at the confidence cap", func(t *testing.T) {
		t.Parallel()

		category, confidence := scorer.Score("https://example.com/docs/getting-started")
		if category != model.CategoryBenign {
			t.Errorf("category = %q, want benign", category)
		}
		if confidence != model.HeuristicConfidenceCap {
			t.Errorf("confidence = %v, want cap %v", confidence, model.HeuristicConfidenceCap)
		}
	})

	t.Run("single weak signal stays benign with low confidence", func(t *testing.T) {
		t.Parallel()

		// A shortener alone is dampened by the benign baseline.
		category, confidence := scorer.Score("https://bit.ly/3xyz")
		if category != model.CategoryBenign {
			t.Errorf("category = %q, want benign", category)
		}
		if confidence >= model.HeuristicConfidenceCap {
			t.Errorf("confidence = %v, should be reduced by the dissenting vote", confidence)
		}
	})

	t.Run("ip literal with risky keyword is suspicious", func(t *testing.T) {
		t.Parallel()

		category, _ := scorer.Score("http://192.0.2.7/login")
		if category != model.CategorySuspicious {
			t.Errorf("category = %q, want suspicious", category)
		}
	})

	t.Run("suspicious tld with risky keyword is suspicious", func(t *testing.T) {
		t.Parallel()

		category, _ := scorer.Score("https://secure-login.example.tk/verify")
		if category != model.CategorySuspicious {
			t.Errorf("category = %q, want suspicious", category)
		}
	})

	t.Run("confusable punycode host is malicious", func(t *testing.T) {
		t.Parallel()

		// Fullwidth "a" renders like ASCII but changes under NFKC.
		host, err := idna.ToASCII("ａpple.com")
		if err != nil {
			t.Fatalf("idna.ToASCII() error = %v", err)
		}
		if !strings.Contains(host, "xn--") {
			t.Fatalf("expected punycode host, got %q", host)
		}

		category, _ := scorer.Score("https://" + host + "/")
		if category != model.CategoryMalicious {
			t.Errorf("category = %q, want malicious", category)
		}
	})

	t.Run("stacked signals raise confidence", func(t *testing.T) {
		t.Parallel()

		_, weak := scorer.Score("http://192.0.2.7/login")
		longQuery := "http://192.0.2.7/login?" + strings.Repeat("x=1&", 50)
		category, strong := scorer.Score(longQuery)

		if category != model.CategorySuspicious {
			t.Fatalf("category = %q, want suspicious", category)
		}
		if strong <= weak {
			t.Errorf("more signals should raise confidence: %v <= %v", strong, weak)
		}
	})

	t.Run("confidence never reaches the live floor", func(t *testing.T) {
		t.Parallel()

		urls := []string{
			"https://example.com/a",
			"http://192.0.2.7/login",
			"https://bit.ly/x",
			"https://a.b.c.d.e.example.tk/verify?bank=1",
			"https://example.com/" + strings.Repeat("x%20", 80),
		}
		for _, url := range urls {
			if _, confidence := scorer.Score(url); confidence >= model.LiveConfidenceFloor {
				t.Errorf("Score(%q) confidence = %v, must stay below %v", url, confidence, model.LiveConfidenceFloor)
			}
		}
	})

	t.Run("identical input yields identical score", func(t *testing.T) {
		t.Parallel()

		const url = "https://a.b.c.d.example.tk/verify"
		c1, conf1 := scorer.Score(url)
		c2, conf2 := scorer.Score(url)
		if c1 != c2 || conf1 != conf2 {
			t.Errorf("scores differ: (%q, %v) vs (%q, %v)", c1, conf1, c2, conf2)
		}
	})

	t.Run("unparseable input falls back to benign", func(t *testing.T) {
		t.Parallel()

		category, _ := scorer.Score("://not-a-url")
		if category != model.CategoryBenign {
			t.Errorf("category = %q, want benign fallback", category)
		}
	})
}

func TestSubdomainDepth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		host string
		want int
	}{
		{"registrable domain", "example.com", 0},
		{"single subdomain", "www.example.com", 1},
		{"deep nesting", "a.b.c.d.example.com", 4},
		{"ip literal", "192.0.2.7", 0},
		{"bare tld", "com", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := subdomainDepth(tt.host); got != tt.want {
				t.Errorf("subdomainDepth(%q) = %d, want %d", tt.host, got, tt.want)
			}
		})
	}
}

func TestIsConfusableHost(t *testing.T) {
	t.Parallel()

	t.Run("ascii host is not confusable", func(t *testing.T) {
		t.Parallel()
		if isConfusableHost("example.com") {
			t.Error("plain ascii host should not be confusable")
		}
	})

	t.Run("nfkc-stable punycode is not confusable", func(t *testing.T) {
		t.Parallel()

		// The umlaut is a legitimate IDN character and NFKC-stable.
		host, err := idna.ToASCII("bücher.example")
		if err != nil {
			t.Fatalf("idna.ToASCII() error = %v", err)
		}
		if isConfusableHost(host) {
			t.Errorf("host %q should not be confusable", host)
		}
	})

	t.Run("nfkc-unstable punycode is confusable", func(t *testing.T) {
		t.Parallel()

		host, err := idna.ToASCII("ａpple.com")
		if err != nil {
			t.Fatalf("idna.ToASCII() error = %v", err)
		}
		if !isConfusableHost(host) {
			t.Errorf("host %q should be confusable", host)
		}
	})
}
