// Package buildinfo holds build metadata injected with -ldflags.
package buildinfo

import (
	"fmt"
	"io"
)

var (
	BuildVersion string
	BuildDate    string
	BuildCommit  string
)

const notAvailable = "N/A"

// Info is the build metadata as exposed over HTTP.
type Info struct {
	Version string `json:"version"`
	Date    string `json:"date"`
	Commit  string `json:"commit"`
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

// Get returns the current build metadata with unset values as "N/A".
func Get() Info {
	return Info{
		Version: orNA(BuildVersion),
		Date:    orNA(BuildDate),
		Commit:  orNA(BuildCommit),
	}
}

func PrintBuildInfo(w io.Writer) {
	info := Get()
	fmt.Fprintf(w, "Build version: %s\n", info.Version)
	fmt.Fprintf(w, "Build date: %s\n", info.Date)
	fmt.Fprintf(w, "Build commit: %s\n", info.Commit)
}
