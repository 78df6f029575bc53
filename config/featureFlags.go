package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMatchThreshold  = 0.75
	DefaultCatalogPageSize = 1000
	DefaultConflictRetries = 3
)

// MatchThreshold is the minimum score for a fuzzy or first-token verdict.
//
// Set via env:
// - MATCH_THRESHOLD=0.75
func MatchThreshold() float64 {
	v := strings.TrimSpace(os.Getenv("MATCH_THRESHOLD"))
	if v == "" {
		return DefaultMatchThreshold
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 || f > 1 {
		return DefaultMatchThreshold
	}
	return f
}

// MatchIndexMinCatalog switches validation to the first-token index once a
// catalog has at least this many entries. Zero (the default) always scans.
//
// Set via env:
// - MATCH_INDEX_MIN_CATALOG=20000
// - MATCH_INDEX_FALLBACK=200
func MatchIndexMinCatalog() int {
	n := intFromEnv("MATCH_INDEX_MIN_CATALOG", 0)
	if n < 0 {
		return 0
	}
	return n
}

func MatchIndexFallback() int {
	return intFromEnv("MATCH_INDEX_FALLBACK", 200)
}

// CatalogPageSize bounds each page read while loading a full catalog into memory.
func CatalogPageSize() int {
	n := intFromEnv("CATALOG_PAGE_SIZE", DefaultCatalogPageSize)
	if n <= 0 {
		return DefaultCatalogPageSize
	}
	return n
}

// CatalogCacheTTL is how long a paged catalog snapshot stays in redis.
// Zero (the default) disables the snapshot cache.
func CatalogCacheTTL() time.Duration {
	n := intFromEnv("CATALOG_CACHE_TTL_SECONDS", 0)
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

// CommitConflictRetries bounds the re-read loop after a unique-key conflict.
func CommitConflictRetries() int {
	n := intFromEnv("COMMIT_CONFLICT_RETRIES", DefaultConflictRetries)
	if n <= 0 {
		return 1
	}
	return n
}

// ImportRunEventsEnabled publishes a Pub/Sub message when a run completes or fails.
//
// Set via env:
// - IMPORT_RUN_EVENTS_ENABLED=true
// - IMPORT_RUN_EVENTS_TOPIC=import-run-events
func ImportRunEventsEnabled() bool {
	return EnvBoolDefault("IMPORT_RUN_EVENTS_ENABLED", false)
}

func ImportRunEventsTopic() string {
	topic := strings.TrimSpace(os.Getenv("IMPORT_RUN_EVENTS_TOPIC"))
	if topic == "" {
		return "import-run-events"
	}
	return topic
}

// ArchiveUploads stores parsed source files in GCS_BUCKET before returning rows.
func ArchiveUploads() bool {
	return EnvBoolDefault("ARCHIVE_UPLOADS", false)
}

// PhoneCountryCode is the default region used to parse supplier phone numbers.
func PhoneCountryCode() string {
	v := strings.ToUpper(strings.TrimSpace(os.Getenv("PHONE_COUNTRY_CODE")))
	if v == "" {
		return "MM"
	}
	return v
}

func EnvBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
