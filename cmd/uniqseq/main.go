// Command uniqseq deduplicates repeated multi-record sequences from a
// stream of text records.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jeffreyurban/uniqseq/internal/cli"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, os.Environ(), sigCh)

	os.Exit(exitCode)
}
