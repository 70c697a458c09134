// Command hoteldex serves hotel and region lookups from a search index kept
// in sync with provider dumps.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
