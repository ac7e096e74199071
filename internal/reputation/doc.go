// Package reputation resolves URL risk verdicts against an external
// reputation service (VirusTotal v3) through a process-wide cache.
//
// The cache enforces TTL-based staleness, LRU capacity eviction, and the
// single-flight contract: at most one live lookup per distinct URL is in
// flight at a time, with concurrent callers sharing its result. Lookup
// failures are never cached and never fabricated into verdicts; the
// classifier decides the fallback.
package reputation
