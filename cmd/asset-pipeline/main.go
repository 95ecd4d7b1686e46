// asset-pipeline renders asset renditions through declarative transformer chains.
package main

import (
	"os"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
