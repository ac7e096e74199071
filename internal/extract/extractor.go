package extract

import (
	"net/url"
	"strings"

	"github.com/docvet/qrscan/internal/model"
)

// Extract converts decoded codes from all pages into a mapping from
// normalized URL to candidate. Codes whose payload is not an http(s) URL
// are skipped; that is expected, not an error. Two codes normalizing to
// the same URL merge their provenance into one candidate.
//
// The code index recorded in provenance is the code's position within its
// page's decode order, so (page index, code index) addresses the exact
// detection a candidate came from.
func Extract(codes []model.DetectedCode) map[string]*model.URLCandidate {
	candidates := make(map[string]*model.URLCandidate)
	perPage := make(map[int]int)

	for _, code := range codes {
		codeIndex := perPage[code.PageIndex]
		perPage[code.PageIndex]++

		normalized, ok := Normalize(code.Payload)
		if !ok {
			continue
		}

		candidate, exists := candidates[normalized]
		if !exists {
			candidate = &model.URLCandidate{URL: normalized}
			candidates[normalized] = candidate
		}
		candidate.AddSource(model.Provenance{
			PageIndex: code.PageIndex,
			CodeIndex: codeIndex,
		})
	}

	return candidates
}

// Normalize canonicalizes a raw payload into its normalized URL form.
// It returns false when the payload is not an absolute http or https URL.
//
// Normalization rules:
//   - scheme and host are lowercased
//   - default ports (80 for http, 443 for https) are stripped
//   - duplicate slashes in the path collapse to one
//   - a single trailing slash is stripped
//   - the fragment is dropped (it never reaches the server)
//
// The query string is kept verbatim: query ordering and encoding can be
// semantically significant, so rewriting it could merge distinct URLs.
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}

	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	path := collapseSlashes(u.EscapedPath())
	path = strings.TrimSuffix(path, "/")

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	if port != "" {
		b.WriteByte(':')
		b.WriteString(port)
	}
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}

	return b.String(), true
}

// collapseSlashes replaces runs of consecutive slashes in the path with
// a single slash.
func collapseSlashes(path string) string {
	if !strings.Contains(path, "//") {
		return path
	}
	var b strings.Builder
	b.Grow(len(path))
	prevSlash := false
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	return b.String()
}
