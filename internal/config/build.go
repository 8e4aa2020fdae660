package config

import "fmt"

// Build metadata set at link time:
//
//	go build -ldflags "-X github.com/Zidanesyah/willItRain/internal/config.version=1.2.3 \
//	    -X github.com/Zidanesyah/willItRain/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X github.com/Zidanesyah/willItRain/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// UserAgent is the User-Agent sent on outbound provider calls.
func (b BuildInfo) UserAgent() string {
	return fmt.Sprintf("WillItRain/%s (+%s)", b.Version, b.Commit)
}
