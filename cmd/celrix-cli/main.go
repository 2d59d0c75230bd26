// Command celrix-cli is an interactive and scriptable client for CELRIX.
package main

import (
	"os"

	"github.com/celrix/celrix-go/cmd/celrix-cli/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
