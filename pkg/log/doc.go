// Package log provides the broker's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that preserves our existing
// formatter/outputs pipeline. This allows adoption of the slog ecosystem
// while keeping consistent output and behavior across the codebase.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("server"), log.Str("ns", "default"))
//	l.Info("server started", log.Int("port", 8080))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config: it selects the
// level and JSON or text formatting, and the logger writes to the console.
// Other outputs (such as WriterOutput) are attached with WithOutput when
// building a logger through NewLogger.
//
// # Interop
//
// To integrate with libraries expecting *log.Logger (such as Pebble's internal
// diagnostics), use RedirectStdLog. Most code should depend on the Logger
// interface rather than the concrete BaseLogger type.
package log
