// Command surfacesync ingests nmap scan results into a search index.
package main

import "github.com/anstrom/surfacesync/cmd/cli"

// Build information, set by ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
