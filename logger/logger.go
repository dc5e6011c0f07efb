// Package logger exposes one named logger per runtime subsystem, built once
// at package init and safe for concurrent use thereafter — the same shape
// as the host application's logger package, narrowed to this runtime's
// subsystems instead of a whole web application's.
package logger

import (
	"github.com/gobatis/gobatis/logger/zap"
)

var (
	// Binding logs interface/document ingestion and descriptor-table lookups.
	Binding = zap.New("binding")
	// Dynamic logs dynamic SQL node rendering.
	Dynamic = zap.New("dynamic")
	// Executor logs executor-stack activity (simple/reuse/batch, first-level cache).
	Executor = zap.New("executor")
	// Cache logs second-level cache decorator hit/miss/eviction activity.
	Cache = zap.New("cache")
	// Result logs result-set handler activity (auto-mapping, nested maps, lazy loads).
	Result = zap.New("result")
	// Session logs session lifecycle (open/commit/rollback/close).
	Session = zap.New("session")
)

// Clean flushes all subsystem loggers. Call during shutdown.
func Clean() {
	zap.Clean(Binding, Dynamic, Executor, Cache, Result, Session)
}
