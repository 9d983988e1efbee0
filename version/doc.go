// Package version reports the filevault build.
//
// Version, commit and build time are set at link time; anything left empty is
// filled from the module build info recorded by the Go toolchain:
//
//	go build -ldflags "-X github.com/kbukum/filevault/version.Version=1.2.0" ./cmd/filevault
package version
