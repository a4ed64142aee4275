// Command primecalc classifies every integer up to a limit on a worker pool
// and prints the primes it found.
//
// Usage:
//
//	primecalc [flags] <max_number> [thread_count]
package main

import (
	"os"
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
