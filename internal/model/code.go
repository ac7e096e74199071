package model

// BoundingBox locates a decoded QR code on its page in raster pixel
// coordinates. The origin is the top-left corner of the page image.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectedCode is one successfully decoded QR code. It is created by the
// code decoder and never modified afterwards.
type DetectedCode struct {
	// PageIndex is the 0-based page the code was found on.
	PageIndex int `json:"page_index"`

	// Bounds is the code's bounding region on the page image.
	Bounds BoundingBox `json:"bounds"`

	// Payload is the raw decoded string. It may or may not be a URL;
	// non-URL payloads are dropped during extraction, not here.
	Payload string `json:"payload"`
}

// Provenance records where a URL candidate was observed: which page and
// which code on that page (0-based position within the page's decode order).
type Provenance struct {
	PageIndex int `json:"page_index"`
	CodeIndex int `json:"code_index"`
}

// URLCandidate is a normalized, deduplicated URL together with every
// location it was observed at. Two codes that normalize to the same URL
// share one candidate and merge their provenance.
type URLCandidate struct {
	// URL is the normalized form. Unique within a single scan result.
	URL string `json:"url"`

	// Sources lists every observation of this URL, in page order.
	Sources []Provenance `json:"sources"`
}

// AddSource appends a provenance reference, ignoring exact duplicates.
func (c *URLCandidate) AddSource(p Provenance) {
	for _, existing := range c.Sources {
		if existing == p {
			return
		}
	}
	c.Sources = append(c.Sources, p)
}

// Pages returns the distinct page indexes this candidate was observed on,
// in first-seen order.
func (c *URLCandidate) Pages() []int {
	seen := make(map[int]bool, len(c.Sources))
	pages := make([]int, 0, len(c.Sources))
	for _, p := range c.Sources {
		if !seen[p.PageIndex] {
			seen[p.PageIndex] = true
			pages = append(pages, p.PageIndex)
		}
	}
	return pages
}
