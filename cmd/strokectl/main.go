// Command strokectl is the operator CLI for the stroke code server: quick
// dose lookups, case archive inspection and configuration checks.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
