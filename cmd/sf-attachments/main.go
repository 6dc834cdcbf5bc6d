// sf-attachments exports Salesforce Attachment files to disk.
package main

import (
	"os"

	"github.com/sfextract/sf-attachments/internal/cli"
	"github.com/sfextract/sf-attachments/internal/version"
)

// Version information, set by ldflags during build.
var (
	Version   = "v1.3.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	os.Exit(cli.Execute())
}
