package main

import (
	"github.com/FuShang114/mooncell-admission-sim/cmd"
)

// main starts the CLI
func main() {
	cmd.Execute()
}
