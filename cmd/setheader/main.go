// Command setheader enforces HTTP headers and user metadata on every object
// of an S3 bucket, listing and rewriting objects through a backpressured
// worker pipeline.
package main

import (
	"os"
)

func main() {
	root := newRootCommand()
	root.AddCommand(newRunCommand(defaultClient), newVersionCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
