// Package heuristic scores URL risk from lexical and structural features
// alone. Scoring is deterministic and performs no network I/O, which makes
// it the fallback classification path when the reputation service is
// unavailable or unconfigured.
package heuristic
