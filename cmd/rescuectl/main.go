// Command rescuectl runs mission admin operations against a rescue server.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
