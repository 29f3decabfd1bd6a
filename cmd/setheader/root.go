package main

import (
	"github.com/spf13/cobra"
)

const serviceName = "setheader"

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   serviceName,
		Short: "Set HTTP headers and metadata on S3 objects in bulk",
		Long: `setheader lists a bucket page by page and rewrites the headers of every
object that does not already carry the requested values.

Settings are read from flags, environment variables prefixed with SETHEADER_,
a .env file and config.yml (in that order).`,
		SilenceUsage: true,
	}
}
