package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/casefiledev/casefile-mcp/internal/storage"
)

const versionShortDesc string = "Print version and build information"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: versionShortDesc,
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("casefile %s\n", Version)
			fmt.Printf("  build time:    %s\n", BuildTime)
			fmt.Printf("  build mode:    %s\n", storage.BuildMode)
			fmt.Printf("  sqlite driver: %s\n", storage.DriverName)
			fmt.Printf("  schema:        %s\n", storage.CurrentSchemaVersion)
		},
	}
}
