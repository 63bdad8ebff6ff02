package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultCommandTimeout bounds a single remediation or test command
	DefaultCommandTimeout = 45 * time.Second
	// DefaultToolCacheDuration is how long tool availability is cached
	DefaultToolCacheDuration = 10 * time.Minute
)

// Loop constants
const (
	// DefaultMaxIterations is the healing loop attempt ceiling
	DefaultMaxIterations = 5
	// RecurrenceLimit is how many identical issue occurrences force a hard blocker
	RecurrenceLimit = 3
	// MaxCapturedOutput caps stored stdout/stderr per command
	MaxCapturedOutput = 50000
)

// History constants
const (
	// DefaultHistoryLimit is the default number of run records to display
	DefaultHistoryLimit = 20
	// DefaultHistorySearchLimit is the default number of search results to return
	DefaultHistorySearchLimit = 50
	// DefaultHistoryRetainDays is the default number of days to retain runs
	DefaultHistoryRetainDays = 30
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
