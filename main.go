//	@title			Renovate Resolver API
//	@version		1.0.0
//	@description	Validates Renovate configs against the Renovate JSON schema and resolves their presets

//	@license.name	MIT

//	@BasePath	/

//	@tag.name			Resolve
//	@tag.description	Config validation and preset resolution

//	@tag.name			Operations
//	@tag.description	Operational endpoints for monitoring and health

package main

import (
	"os"

	"github.com/renovate-resolver/resolver/cli"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		// Exit with error code 1 if command execution fails
		os.Exit(1)
	}
}
