// docdex is a local documentation retrieval engine exposed over the
// Model Context Protocol.
package main

import (
	"fmt"
	"os"

	"github.com/docdex/docdex/cmd/docdex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
