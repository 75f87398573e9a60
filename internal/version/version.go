// Package version retrieves the version of the otter-vm module for
// the CLI's `version` subcommand.
package version

import "runtime/debug"

// Default is the substituted version when the module's version could
// not be determined from build info, e.g. a `go run .` straight from
// a source checkout.
const Default = "dev"

const modulePath = "github.com/octofhir/otter-vm"

// GetOtterVersion returns the version of the otter-vm module this
// binary was built against: the main module's version when the CLI is
// built from this repository, otherwise the version of the otter-vm
// dependency of whatever main module embeds it.
func GetOtterVersion() (ret string) {
	ret = Default
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if info.Main.Path == modulePath && info.Main.Version != "(devel)" && info.Main.Version != "" {
		return info.Main.Version
	}
	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			return dep.Version
		}
	}
	return
}
