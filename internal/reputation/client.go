package reputation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/docvet/qrscan/internal/model"
)

// DefaultBaseURL is the VirusTotal v3 API endpoint.
const DefaultBaseURL = "https://www.virustotal.com/api/v3"

// DefaultLookupTimeout bounds a single reputation request. Lookups are the
// only blocking I/O in a scan, so a stuck request must not hold a
// classification worker for long.
const DefaultLookupTimeout = 10 * time.Second

// maxResponseBody limits how much of a reputation response is read.
// Analysis payloads are a few KB; anything larger is malformed.
const maxResponseBody = 1 << 20

// Client queries the VirusTotal v3 URL analysis API.
//
// A URL is addressed by the unpadded base64url encoding of its normalized
// form, so a lookup is a single GET with no prior submission round-trip.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the service endpoint. Used by tests to point the
// client at a local server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClientLogger sets a custom logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a reputation client using the given API credential.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultLookupTimeout},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// analysisResponse mirrors the subset of the VirusTotal v3 URL object we
// consume: the per-engine analysis tallies.
type analysisResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
				Undetected int `json:"undetected"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// Lookup queries the reputation service for the given normalized URL.
// On success it returns a live verdict with confidence in
// [model.LiveConfidenceFloor, 1]. A URL the service has never analyzed
// (404) yields an unknown-category verdict, not an error. All failure
// modes are classified into the package's sentinel errors.
func (c *Client) Lookup(ctx context.Context, url string) (model.Verdict, error) {
	id := base64.RawURLEncoding.EncodeToString([]byte(url))
	endpoint := fmt.Sprintf("%s/urls/%s", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to body parsing below.
	case resp.StatusCode == http.StatusNotFound:
		// Service has never seen this URL. That is an answer, not a failure.
		return model.Verdict{
			Category:    model.CategoryUnknown,
			Confidence:  model.LiveConfidenceFloor,
			Source:      model.SourceLiveLookup,
			EvaluatedAt: time.Now().UTC(),
		}, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return model.Verdict{}, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return model.Verdict{}, ErrUnauthorized
	case resp.StatusCode >= 500:
		return model.Verdict{}, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	default:
		return model.Verdict{}, fmt.Errorf("%w: unexpected status %d", ErrMalformedResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return model.Verdict{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var parsed analysisResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Verdict{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	verdict := verdictFromStats(
		parsed.Data.Attributes.LastAnalysisStats.Malicious,
		parsed.Data.Attributes.LastAnalysisStats.Suspicious,
		parsed.Data.Attributes.LastAnalysisStats.Harmless,
		parsed.Data.Attributes.LastAnalysisStats.Undetected,
	)

	c.logger.Debug("reputation lookup completed",
		"url", url,
		"category", verdict.Category,
		"confidence", verdict.Confidence,
	)

	return verdict, nil
}

// verdictFromStats maps engine tallies onto a verdict.
//
// Any malicious vote makes the URL malicious: reputation engines are
// conservative, so even a single hit is a strong signal. Confidence starts
// at the live floor and grows with the share of engines agreeing with the
// chosen category, so one hit among eighty engines is reported with less
// certainty than a unanimous conviction.
func verdictFromStats(malicious, suspicious, harmless, undetected int) model.Verdict {
	total := malicious + suspicious + harmless + undetected

	category := model.CategoryUnknown
	agreeing := 0
	switch {
	case malicious > 0:
		category = model.CategoryMalicious
		agreeing = malicious
	case suspicious > 0:
		category = model.CategorySuspicious
		agreeing = suspicious
	case harmless > 0:
		category = model.CategoryBenign
		agreeing = harmless
	}

	confidence := model.LiveConfidenceFloor
	if total > 0 && agreeing > 0 {
		confidence += (1 - model.LiveConfidenceFloor) * float64(agreeing) / float64(total)
	}

	return model.Verdict{
		Category:    category,
		Confidence:  confidence,
		Source:      model.SourceLiveLookup,
		EvaluatedAt: time.Now().UTC(),
	}
}
