// Package version reports the build version of the voicecap binary.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/voicecap/version.Version=1.2.0 \
//	  -X github.com/kbukum/voicecap/version.Commit=$(git rev-parse --short HEAD)"
//
// Missing values are filled from the module's embedded VCS build settings.
package version
