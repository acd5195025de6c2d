// Package log provides zkq's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. A BaseLogger writes each entry
// through its formatter and outputs; Logger.Slog returns an *slog.Logger
// whose custom handler routes slog records into that same formatter/outputs
// pipeline. This allows adoption of the slog ecosystem while keeping
// consistent output and behavior across the codebase.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput(nil)),
//	)
//	l = l.With(log.Component("server"), log.Str("queue", "jobs"))
//	l.Info("server started", log.Int("port", 8080))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting
// JSON or text formatting and a single output writer.
//
// # Interop
//
// To integrate with libraries expecting the standard library's log
// package, use RedirectStdLog. Most code should depend on the Logger
// interface directly rather than reaching for slog.
package log
