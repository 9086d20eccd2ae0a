// Command dsoplan plans deep-sky observations: it scores single objects,
// evaluates the whole catalogue for a night and serves the results over
// HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dsoplan:", err)
		os.Exit(1)
	}
}
