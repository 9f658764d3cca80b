// Package main implements the archiver command. It runs the download queue
// worker, the HTTP API with the relay observer, and the operator commands
// for inspecting and editing the queue.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
