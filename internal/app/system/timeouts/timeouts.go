// Package timeouts provides the timeout values handlers use with
// context.WithTimeout for database and storage calls.
//
//   - Ping: health checks
//   - Short: single-document reads and lookups
//   - Medium: list queries and single-collection writes
//   - Long: transactions touching several collections, cascading deletes
//   - Upload: requests that push files to a storage backend
package timeouts

import (
	"sync"
	"time"
)

// Defaults used until Configure is called.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultUpload = 2 * time.Minute
)

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	upload = DefaultUpload
)

// Ping returns the health-check timeout.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for single-document operations.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Medium returns the timeout for list queries and simple writes.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the timeout for multi-collection writes.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Upload returns the timeout for requests that store files.
func Upload() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return upload
}

// Config holds timeout overrides. Zero values keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Upload time.Duration
}

// Configure applies overrides. Call it during startup, before serving.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&ping, cfg.Ping)
	set(&short, cfg.Short)
	set(&medium, cfg.Medium)
	set(&long, cfg.Long)
	set(&upload, cfg.Upload)
}

// Reset restores the defaults. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping, short, medium, long, upload = DefaultPing, DefaultShort, DefaultMedium, DefaultLong, DefaultUpload
}

// Current returns the values in effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Medium: medium, Long: long, Upload: upload}
}
