// Package version exposes build metadata stamped in with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/sweep/version.Version=1.2.0 \
//	    -X github.com/kbukum/sweep/version.Commit=$(git rev-parse --short HEAD)"
//
// Values missing at link time fall back to the VCS settings recorded by the
// Go toolchain.
package version
