// Package log provides structured protocol logging for the node core.
//
// It defines the Logger interface and Event types for capturing events
// at the discovery, pairing, and gateway layers. This is separate from
// operational logging (slog): protocol capture provides a complete
// machine-readable trace of what the node saw on the network.
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For diagnostics bundles: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("~/.openclaw/node.clog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(adapter, fileLogger)
//
// Log files use CBOR encoding with integer keys (.clog extension).
package log
