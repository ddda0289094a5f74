// Command deckhand is the control CLI for the deckhand daemon: it submits
// documents, inspects the queue, manages credentials and drives the daemon
// lifecycle over its Unix socket.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
