package reputation

import "errors"

// Lookup error classes. Callers match with errors.Is to distinguish
// retryable conditions from configuration problems; all of them trigger
// the heuristic fallback rather than failing the scan.
var (
	// ErrRateLimited is returned when the reputation service rejects the
	// request with HTTP 429. The free VirusTotal tier allows 4 requests
	// per minute, so this is an expected operating condition.
	ErrRateLimited = errors.New("reputation service rate limit exceeded")

	// ErrUnauthorized is returned for HTTP 401/403 responses. It usually
	// means the configured API key is invalid or revoked.
	ErrUnauthorized = errors.New("reputation service rejected credentials")

	// ErrUnreachable is returned for transport failures and 5xx responses.
	ErrUnreachable = errors.New("reputation service unreachable")

	// ErrMalformedResponse is returned when the service answers with a
	// body that cannot be parsed into the expected shape.
	ErrMalformedResponse = errors.New("reputation service returned malformed response")
)
