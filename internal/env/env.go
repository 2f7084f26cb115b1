package env

// Build metadata, stamped via -ldflags at release time.
var (
	AppName    = "oasis"
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)
