package clistcal

// Build version, injected during build.
var (
	Version string
	Commit  string
)
