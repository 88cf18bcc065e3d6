package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Window used by the per-IP limiter on OAuth entry points
const OAuthRateLimitWindow = time.Minute

// Token lifecycle rules
const (
	MinTokenAgeForRefresh = 24 * time.Hour
	RefreshPermission     = "instagram_business_basic"
)

// Metrics namespace
const MetricsNamespace = "graph_connector"
