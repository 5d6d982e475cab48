// Package config groups the core's operational defaults as const blocks
// per concern.
package config

import "time"

// Server defaults (cmd/viyadb-server).
const (
	DefaultPort = "8080"
)

// Table defaults.
const (
	// DefaultSegmentSize is the record capacity of a segment when a table
	// descriptor omits segment_size.
	DefaultSegmentSize = 1_000_000

	// DefaultCountWidthBits is the default stored width for an implicit
	// COUNT metric when no max is configured.
	DefaultCountWidthBits = 32
)

// Upsert engine defaults.
const (
	// UpdatesBeforeOptimize is the N in "every N updates
	// (implementation-chosen, N >= 1024) optimize any bitset metric in
	// place".
	UpdatesBeforeOptimize = 2048
)

// Pool defaults.
const (
	// DefaultWritePoolSize serializes ingest per database.
	DefaultWritePoolSize = 1
	// DefaultReadPoolSize runs queries concurrently.
	DefaultReadPoolSize = 4
)

// Watcher defaults.
const (
	// WatchPollInterval is how often the directory watcher's fallback
	// poll loop re-scans in case an fsnotify event is missed (e.g. on
	// network filesystems that don't deliver rename events reliably).
	WatchPollInterval = 2 * time.Second

	// DefaultWatchExtension is used when a watch descriptor omits
	// extensions.
	DefaultWatchExtension = ".tsv"
)

// TSV ingestion limits.
const (
	MaxTSVLineBytes = 1_024_000
)

// Shutdown/server timeouts for cmd/viyadb-server.
const (
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 10 * time.Second
	ShutdownTimeout    = 30 * time.Second
)

// Live-tail WebSocket defaults (cmd/viyadb-server).
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSChannelBuffer    = 16
	WSBroadcastBuffer  = 64
	WSPingInterval     = 30 * time.Second
	WSWriteDeadline    = 10 * time.Second
	WSReadDeadline     = 60 * time.Second
)
