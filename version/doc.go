// Package version reports build information for `orthotile version`.
//
// The release fields are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/orthotile/version.Version=1.4.0"
//
// Anything left unset is recovered from the module build information.
package version
