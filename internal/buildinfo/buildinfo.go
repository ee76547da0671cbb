// Package buildinfo exposes the version stamped into the binary
package buildinfo

import "time"

// Set via -ldflags "-X github.com/xelth-com/mprgo/internal/buildinfo.Version=..."
var (
	Version    = "dev"
	BuildTime  string
	CommitHash string
)

var startTime = time.Now().UTC()

// Info is the build and process metadata reported by /health
type Info struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit,omitempty"`
	BuildTime string    `json:"buildTime,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	Uptime    string    `json:"uptime"`
}

// Current returns the metadata of the running process
func Current() Info {
	return Info{
		Version:   Version,
		Commit:    CommitHash,
		BuildTime: BuildTime,
		StartedAt: startTime,
		Uptime:    time.Since(startTime).Truncate(time.Second).String(),
	}
}
