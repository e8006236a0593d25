/*
Package log provides structured logging for the store using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

The store's logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("source")                  │          │
	│  │  - WithBranch(handle)                       │          │
	│  │  - WithConnection("conn-abc123")            │          │
	│  │  - WithIsolationLevel("serializable")       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "source",                   │          │
	│  │    "time": "2026-07-31T10:30:00Z",         │          │
	│  │    "message": "branch prepared"             │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  2026-07-31T10:30:00Z INF branch prepared   │          │
	│  │    component=source                         │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all store packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithBranch: Add source branch handle context
  - WithConnection: Add connection ID context
  - WithIsolationLevel: Add the active transaction's isolation level

# Log Levels

Debug Level:
  - Purpose: Detailed debugging information
  - Usage: Development and troubleshooting
  - Performance: Verbose, may impact production
  - Example: "evaluating pattern against SPOC index"

Info Level:
  - Purpose: General informational messages
  - Usage: Default production level
  - Performance: Moderate volume
  - Example: "branch flushed: 42 approved, 3 deprecated"

Warn Level:
  - Purpose: Potential issues or unexpected conditions
  - Usage: Situations that may require attention
  - Performance: Low volume
  - Example: "releasing abandoned resource found during leak sweep"

Error Level:
  - Purpose: Operation failures that need investigation
  - Usage: Failed operations, exceptions
  - Performance: Low volume
  - Example: "failed to release abandoned branch: store closed"

Fatal Level:
  - Purpose: Critical errors causing process termination
  - Usage: Unrecoverable errors only
  - Behavior: Logs message and exits process (os.Exit(1))
  - Example: "failed to open bolt store: %v"

# Usage

Initializing the Logger:

	import "github.com/quaddb/sail/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

	// Custom output (file)
	file, _ := os.OpenFile("/var/log/sail.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     file,
	})

Simple Logging:

	log.Info("store opened")
	log.Debug("checking branch prepend list")
	log.Warn("auto-flush threshold reached")
	log.Error("failed to prepare branch")
	log.Fatal("cannot open bolt store") // Exits process

Structured Logging:

	log.Logger.Info().
		Str("connection_id", "conn-123").
		Int("buffered_statements", 1000).
		Msg("auto-flush triggered")

	log.Logger.Error().
		Err(err).
		Uint64("branch", uint64(handle)).
		Msg("branch prepare failed")

Component Loggers:

	// Create component-specific logger
	sourceLog := log.WithComponent("source")
	sourceLog.Info().Msg("branch forked")
	sourceLog.Debug().Uint64("branch", uint64(handle)).Msg("preparing branch")

	// Multiple context fields
	connLog := log.WithComponent("conn").
		With().Str("connection_id", "conn-abc").
		Str("isolation_level", "serializable").Logger()
	connLog.Info().Msg("transaction started")
	connLog.Error().Err(err).Msg("commit failed")

Context Logger Helpers:

	// Branch-specific logs
	branchLog := log.WithBranch(uint64(handle))
	branchLog.Info().Msg("branch flushed into parent")

	// Connection-specific logs
	connLog := log.WithConnection("conn-abc123")
	connLog.Info().Msg("connection opened")

	// Isolation-level-specific logs
	txLog := log.WithIsolationLevel("snapshot")
	txLog.Info().Msg("transaction began")

Complete Example:

	package main

	import (
		"errors"
		"os"
		"github.com/quaddb/sail/pkg/log"
	)

	func main() {
		// Initialize logger
		log.Init(log.Config{
			Level:      log.InfoLevel,
			JSONOutput: true,
			Output:     os.Stdout,
		})

		log.Info("store starting")

		// Component-specific logging
		sourceLog := log.WithComponent("source")
		sourceLog.Info().
			Uint64("branch", 7).
			Int("prepend_list_size", 3).
			Msg("branch prepared")

		// Error logging
		err := errors.New("write-skew conflict")
		log.Logger.Error().
			Err(err).
			Str("component", "source").
			Msg("prepare rejected")

		log.Info("store stopped")
	}

# Integration Points

This package integrates with:

  - pkg/conn: Logs transaction state transitions, implicit rollback and
    force-closed iterators at connection close
  - pkg/leakcheck: Logs abandoned-resource sweeps (through the logger
    passed to leakcheck.New)
  - cmd/sailctl: Initializes the logger from its command-line flags

pkg/store, pkg/source, pkg/dataset and pkg/sink do not log.

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"source","time":"2026-07-31T10:30:00Z","message":"branch forked"}
	{"level":"info","component":"sink","connection_id":"conn-123","time":"2026-07-31T10:30:01Z","message":"auto-flush triggered"}
	{"level":"error","component":"source","branch":7,"time":"2026-07-31T10:30:02Z","message":"prepare rejected: write-skew conflict"}

Console Format (Development):

	2026-07-31T10:30:00Z INF branch forked component=source
	2026-07-31T10:30:01Z INF auto-flush triggered component=sink connection_id=conn-123
	2026-07-31T10:30:02Z ERR prepare rejected: write-skew conflict component=source branch=7

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs
  - Avoids repetitive field specification

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Enables log aggregation and querying
  - Better than string concatenation
  - Parseable by log analysis tools

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Preserves the sailerr classification via wrapped errors.Is
  - Enables error tracking and alerting
  - Consistent error format across codebase

# Performance Characteristics

Logging Overhead:
  - Disabled level: 0ns (compile-time optimization)
  - JSON encode: ~500ns per log line
  - Console format: ~1µs per log line
  - String field: +50ns per field
  - Int field: +30ns per field

Log Level Impact:
  - Debug: High volume (per-pattern-match detail), development only
  - Info: Moderate volume (branch lifecycle events), suitable for production
  - Warn/Error: Low volume, minimal impact
  - Recommendation: Info level in production

# Troubleshooting

Common Issues:

No Log Output:
  - Symptom: No logs appearing
  - Check: log.Init() called before logging
  - Check: Log level set appropriately (Debug < Info < Warn < Error)
  - Solution: Initialize logger before opening any store

Missing Context Fields:
  - Symptom: Logs missing component, branch, or connection fields
  - Cause: Using global Logger instead of a context logger
  - Solution: Use WithComponent()/WithBranch()/WithConnection()

# Security

Log Content:
  - Never log literal values from untrusted RDF input verbatim at Info level
    or above; prefer logging pattern shapes and counts
  - Redact credentials from any bolt file path or config source before logging

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data (branch handle, connection ID)
  - Create component-specific loggers per package
  - Log errors with .Err() for unwrap-ability

Don't:
  - Log full statement payloads at Info level in hot paths
  - Use Debug level in production
  - Concatenate strings (use .Str, .Uint64)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
