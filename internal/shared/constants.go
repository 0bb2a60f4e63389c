package shared

import "time"

// HTTP Client Configuration
const (
	DefaultHTTPTimeout          = 180 * time.Second
	DefaultStreamRequestTimeout = 120 * time.Second
	DefaultShutdownTimeout      = 10 * time.Minute
)

// Cache Configuration
const (
	UserInfoCacheTTL = 1 * time.Minute
)

// API Configuration
const (
	DefaultMaxTokens = 512
	DefaultModel     = "solace-core"
	APIKeyLength     = 32
)

// Gateway limits. All overridable from flags/env in cmd/api.
const (
	DefaultTranscriptCharCap  = 65536
	DefaultBodyByteCap        = 1 << 20 // 1 MiB
	DefaultMaxConcurrent      = 2
	DefaultStoreCommitRetries = 1
)
