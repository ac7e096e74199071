// Package log provides slog-based structured logging with credential
// redaction. The scanner carries a reputation service API key through
// most of its call paths, and every component logs; the redacting handler
// guarantees the key (and anything shaped like one) never reaches the log
// output, whatever verbosity is set.
package log
