// Package classify combines the reputation cache verdict and the local
// heuristic score into one final verdict per URL. This is the one place
// where reputation service failure must never abort a scan: it degrades
// confidence instead.
package classify
