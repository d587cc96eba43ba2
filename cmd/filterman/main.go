// filterman applies declared request filters to records.
package main

import (
	"os"

	"github.com/ivked85/filterman/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
