// Package domain contains the core types for the ragpipe retrieval pipeline.
// Types here have no dependencies on adapters or infrastructure.
package domain
